package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

func (r *Router) registerDocumentRoutes(api fiber.Router, h *handler.DocumentHandler, g guards) {
	templates := api.Group("/document-templates", g.auth, g.clinicHeader)
	templates.Get("/", h.ListTemplates, g.perm(authorize.ResourceDocumentTemplate, authorize.ActionRead))
	templates.Post("/", h.CreateTemplate, g.perm(authorize.ResourceDocumentTemplate, authorize.ActionCreate))

	t := templates.Group("/:id")
	t.Get("/", h.GetTemplate, g.perm(authorize.ResourceDocumentTemplate, authorize.ActionRead))
	t.Patch("/", h.UpdateTemplate, g.perm(authorize.ResourceDocumentTemplate, authorize.ActionUpdate))
	t.Delete("/", h.DeleteTemplate, g.perm(authorize.ResourceDocumentTemplate, authorize.ActionDelete))

	docs := api.Group("/documents", g.auth, g.clinicHeader)
	docs.Post("/preview", h.Preview, g.perm(authorize.ResourceDocument, authorize.ActionCreate))
	docs.Post("/generate", h.Generate, g.perm(authorize.ResourceDocument, authorize.ActionCreate))

	d := docs.Group("/:id")
	d.Get("/url", h.DownloadURL, g.perm(authorize.ResourceDocument, authorize.ActionRead))
	d.Delete("/", h.DeleteGenerated, g.perm(authorize.ResourceDocument, authorize.ActionDelete))
}
