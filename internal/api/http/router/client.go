package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

// clientRouteDeps carries the handlers mounted under /clients; the
// client file aggregates relations, payers, documents and uploads.
type clientRouteDeps struct {
	client   *handler.ClientHandler
	relation *handler.RelationHandler
	payer    *handler.PayerHandler
	document *handler.DocumentHandler
	file     *handler.FileHandler
}

func (r *Router) registerClientRoutes(api fiber.Router, h clientRouteDeps, g guards) {
	clients := api.Group("/clients", g.auth, g.clinicHeader)

	clients.Get("/", h.client.List, g.perm(authorize.ResourceClient, authorize.ActionRead))
	clients.Post("/", h.client.Create, g.perm(authorize.ResourceClient, authorize.ActionCreate))
	clients.Get("/by-file-number/:number", h.client.GetByFileNumber, g.perm(authorize.ResourceClient, authorize.ActionRead))
	clients.Get("/by-health-card", h.client.FindByHealthCard, g.perm(authorize.ResourceClient, authorize.ActionExport))

	c := clients.Group("/:id")
	c.Get("/", h.client.Get, g.perm(authorize.ResourceClient, authorize.ActionRead))
	c.Patch("/", h.client.Update, g.perm(authorize.ResourceClient, authorize.ActionUpdate))
	c.Post("/archive", h.client.Archive, g.perm(authorize.ResourceClient, authorize.ActionArchive))
	c.Post("/restore", h.client.Restore, g.perm(authorize.ResourceClient, authorize.ActionArchive))

	// Health card (RAMQ); reading the clear number is restricted separately.
	c.Put("/health-card", h.client.SetHealthCard, g.perm(authorize.ResourceClient, authorize.ActionUpdate))
	c.Get("/health-card", h.client.RevealHealthCard, g.perm(authorize.ResourceClient, authorize.ActionExport))

	c.Get("/relations", h.relation.ListForClient, g.perm(authorize.ResourceClientRelation, authorize.ActionRead))
	relations := api.Group("/relations", g.auth, g.clinicHeader)
	relations.Post("/", h.relation.Create, g.perm(authorize.ResourceClientRelation, authorize.ActionCreate))
	relations.Delete("/:id", h.relation.Delete, g.perm(authorize.ResourceClientRelation, authorize.ActionDelete))

	c.Get("/payers", h.payer.ListForClient, g.perm(authorize.ResourceExternalPayer, authorize.ActionRead))
	c.Get("/documents", h.document.ListGenerated, g.perm(authorize.ResourceDocument, authorize.ActionRead))

	c.Get("/files", h.file.ListForClient, g.perm(authorize.ResourceClientFile, authorize.ActionRead))
	c.Post("/files", h.file.Upload, g.perm(authorize.ResourceClientFile, authorize.ActionCreate))
}
