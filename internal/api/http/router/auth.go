package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
)

func (r *Router) registerAuthRoutes(api fiber.Router, h *handler.AuthHandler, g guards) {
	group := api.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
	group.Post("/otp/request", h.RequestOTP)
	group.Post("/otp/verify", h.VerifyOTP)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout, g.auth)
}
