package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, g guards) {
	users := api.Group("/users", g.auth)
	users.Get("/me", h.GetMe)
	users.Patch("/me", h.UpdateMe)
	users.Post("/me/password", h.ChangePassword)
	users.Get("/me/clinics", h.MyClinics)

	// Platform operators only; the permission check runs in the sys domain.
	users.Post("/:id/suspend", h.Suspend, g.perm(authorize.ResourceUser, authorize.ActionManage))
	users.Post("/:id/reactivate", h.Reactivate, g.perm(authorize.ResourceUser, authorize.ActionManage))
}
