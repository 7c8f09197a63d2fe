package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerPayerRoutes(api fiber.Router, h *handler.PayerHandler, g guards) {
	can := func(act authorize.Action) fiber.Handler {
		return g.perm(authorize.ResourceExternalPayer, act)
	}

	payers := api.Group("/payers", g.auth, g.clinicHeader)

	payers.Post("/ivac", h.CreateIVAC, can(authorize.ActionCreate))
	payers.Post("/pae", h.CreatePAE, can(authorize.ActionCreate))

	p := payers.Group("/:id")
	p.Get("/", h.Get, can(authorize.ActionRead))
	p.Patch("/", h.Update, can(authorize.ActionUpdate))
	p.Delete("/", h.Delete, can(authorize.ActionDelete))
	p.Put("/rules", h.ReplaceRules, can(authorize.ActionUpdate))
	p.Post("/deactivate", h.Deactivate, can(authorize.ActionUpdate))
	p.Post("/reactivate", h.Reactivate, can(authorize.ActionUpdate))

	// Coverage
	p.Post("/evaluate", h.Evaluate, can(authorize.ActionRead))
	p.Get("/budget", h.Budget, can(authorize.ActionRead))
	p.Get("/summary", h.Summary, can(authorize.ActionRead))

	// Billing-only surface: the clear IVAC file number and claim submission.
	p.Get("/file-number", h.RevealFileNumber, can(authorize.ActionExport))
	p.Post("/claims", h.SubmitClaim, can(authorize.ActionExport))
}
