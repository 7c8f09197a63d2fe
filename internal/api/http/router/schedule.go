package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerScheduleRoutes(api fiber.Router, h *handler.ScheduleHandler, g guards) {
	can := func(act authorize.Action) fiber.Handler {
		return g.perm(authorize.ResourceTimeSlot, act)
	}

	slots := api.Group("/slots", g.auth, g.clinicHeader)

	slots.Get("/", h.ListSlots, can(authorize.ActionRead))
	slots.Post("/", h.CreateSlot, can(authorize.ActionCreate))
	slots.Post("/generate", h.GenerateSlots, can(authorize.ActionCreate))

	s := slots.Group("/:id")
	s.Get("/", h.GetSlot, can(authorize.ActionRead))
	s.Post("/block", h.BlockSlot, can(authorize.ActionUpdate))
	s.Post("/unblock", h.UnblockSlot, can(authorize.ActionUpdate))
	s.Delete("/", h.DeleteSlot, can(authorize.ActionDelete))
}
