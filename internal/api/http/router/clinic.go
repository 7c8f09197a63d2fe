package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerClinicRoutes(api fiber.Router, h *handler.ClinicHandler, g guards) {
	clinics := api.Group("/clinics")

	clinics.Get("/", h.List)
	clinics.Get("/slug/:slug", h.GetBySlug)
	clinics.Post("/", h.Create, g.auth)

	mgmt := clinics.Group("/:id", g.auth, g.clinicCtx)
	mgmt.Get("/", h.Get)
	mgmt.Patch("/", h.Update, g.perm(authorize.ResourceClinic, authorize.ActionUpdate))
	mgmt.Patch("/settings", h.UpdateSettings, g.perm(authorize.ResourceClinic, authorize.ActionUpdate))
	mgmt.Get("/members", h.ListMembers)
	mgmt.Post("/members", h.AddMember, g.perm(authorize.ResourceClinicMember, authorize.ActionCreate))
	mgmt.Patch("/members/:mid", h.UpdateMember, g.perm(authorize.ResourceClinicMember, authorize.ActionUpdate))
	mgmt.Delete("/members/:mid", h.RemoveMember, g.perm(authorize.ResourceClinicMember, authorize.ActionDelete))
	mgmt.Get("/clinicians", h.ListClinicians)
}
