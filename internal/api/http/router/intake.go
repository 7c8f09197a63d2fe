package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerIntakeRoutes(api fiber.Router, h *handler.IntakeHandler, g guards) {
	can := func(act authorize.Action) fiber.Handler {
		return g.perm(authorize.ResourceConsultationRequest, act)
	}

	reqs := api.Group("/consultation-requests", g.auth, g.clinicHeader)

	reqs.Get("/", h.List, can(authorize.ActionRead))

	q := reqs.Group("/:id")
	q.Get("/", h.Get, can(authorize.ActionRead))
	q.Post("/assign", h.Assign, can(authorize.ActionAssign))
	q.Post("/review", h.StartReview, can(authorize.ActionUpdate))
	q.Post("/scheduled", h.MarkScheduled, can(authorize.ActionUpdate))
	q.Patch("/notes", h.UpdateNotes, can(authorize.ActionUpdate))
	q.Post("/decline", h.Decline, can(authorize.ActionUpdate))

	// Conversion opens a client file, so it takes the client create permission.
	q.Post("/convert", h.Convert, g.perm(authorize.ResourceClient, authorize.ActionCreate))
}
