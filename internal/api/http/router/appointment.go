package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerAppointmentRoutes(api fiber.Router, h *handler.AppointmentHandler, g guards) {
	can := func(act authorize.Action) fiber.Handler {
		return g.perm(authorize.ResourceAppointment, act)
	}

	appts := api.Group("/appointments", g.auth, g.clinicHeader)

	appts.Get("/", h.List, can(authorize.ActionRead))
	appts.Post("/", h.Book, can(authorize.ActionCreate))

	a := appts.Group("/:id")
	a.Get("/", h.Get, can(authorize.ActionRead))
	a.Post("/cancel", h.Cancel, can(authorize.ActionUpdate))
	a.Post("/complete", h.Complete, can(authorize.ActionUpdate))
	a.Post("/no-show", h.MarkNoShow, can(authorize.ActionUpdate))
}
