package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

// Upload and per-client listing live under /clients/:id/files.
func (r *Router) registerFileRoutes(api fiber.Router, h *handler.FileHandler, g guards) {
	can := func(act authorize.Action) fiber.Handler {
		return g.perm(authorize.ResourceClientFile, act)
	}

	files := api.Group("/files", g.auth, g.clinicHeader)

	f := files.Group("/:id")
	f.Get("/", h.Get, can(authorize.ActionRead))
	f.Get("/download", h.Download, can(authorize.ActionRead))
	f.Delete("/", h.Delete, can(authorize.ActionDelete))
}
