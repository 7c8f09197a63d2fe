package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
)

func (r *Router) registerNotificationRoutes(api fiber.Router, h *handler.NotificationHandler, g guards) {
	// Scoped to the authenticated user by the service; no clinic header needed.
	notifs := api.Group("/notifications", g.auth)

	notifs.Get("/", h.List)
	notifs.Get("/unread-count", h.UnreadCount)
	notifs.Post("/read-all", h.MarkAllRead)
	notifs.Post("/:id/read", h.MarkRead)
}
