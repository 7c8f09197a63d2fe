package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/service/document"
)

type DocumentHandler struct {
	svc document.Service
}

func NewDocumentHandler(svc document.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

// POST /document-templates
func (h *DocumentHandler) CreateTemplate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Language string `json:"language"`
		Body     string `json:"body"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tpl, err := h.svc.CreateTemplate(c.Context(), clinicID, document.CreateTemplateRequest{
		Name:     body.Name,
		Category: body.Category,
		Language: body.Language,
		Body:     body.Body,
	})
	if err != nil {
		return mapDocumentError(c, err)
	}

	return created(c, tpl)
}

// GET /document-templates
func (h *DocumentHandler) ListTemplates(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	includeInactive := c.Query("include_inactive") == "true"
	templates, err := h.svc.ListTemplates(c.Context(), clinicID, c.Query("category"), includeInactive)
	if err != nil {
		return mapDocumentError(c, err)
	}

	return ok(c, templates)
}

// GET /document-templates/:id
func (h *DocumentHandler) GetTemplate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	tpl, err := h.svc.GetTemplate(c.Context(), clinicID, templateID)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return ok(c, tpl)
}

// PATCH /document-templates/:id
func (h *DocumentHandler) UpdateTemplate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	var body struct {
		Name     *string `json:"name"`
		Category *string `json:"category"`
		Language *string `json:"language"`
		Body     *string `json:"body"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	tpl, err := h.svc.UpdateTemplate(c.Context(), clinicID, templateID, document.UpdateTemplateRequest{
		Name:     body.Name,
		Category: body.Category,
		Language: body.Language,
		Body:     body.Body,
		IsActive: body.IsActive,
	})
	if err != nil {
		return mapDocumentError(c, err)
	}

	return ok(c, tpl)
}

// DELETE /document-templates/:id
func (h *DocumentHandler) DeleteTemplate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid template id")
	}

	if err := h.svc.DeleteTemplate(c.Context(), clinicID, templateID); err != nil {
		return mapDocumentError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

func bindGenerateRequest(c fiber.Ctx) (document.GenerateRequest, error) {
	var body struct {
		TemplateID string            `json:"template_id"`
		ClientID   string            `json:"client_id"`
		PayerID    *string           `json:"payer_id"`
		Extra      map[string]string `json:"extra"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return document.GenerateRequest{}, errors.New("invalid request body")
	}

	templateID, err := uuid.Parse(body.TemplateID)
	if err != nil {
		return document.GenerateRequest{}, errors.New("invalid template_id")
	}
	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return document.GenerateRequest{}, errors.New("invalid client_id")
	}

	req := document.GenerateRequest{
		TemplateID: templateID,
		ClientID:   clientID,
		Extra:      body.Extra,
	}
	if body.PayerID != nil {
		id, err := uuid.Parse(*body.PayerID)
		if err != nil {
			return document.GenerateRequest{}, errors.New("invalid payer_id")
		}
		req.PayerID = &id
	}
	return req, nil
}

// POST /documents/preview
func (h *DocumentHandler) Preview(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	req, err := bindGenerateRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	rendered, err := h.svc.Preview(c.Context(), clinicID, req)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return ok(c, fiber.Map{"rendered": rendered})
}

// POST /documents/generate
func (h *DocumentHandler) Generate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	req, err := bindGenerateRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	req.GeneratedByID = userID

	doc, err := h.svc.Generate(c.Context(), clinicID, req)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return created(c, doc)
}

// GET /clients/:id/documents
func (h *DocumentHandler) ListGenerated(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	docs, err := h.svc.ListGenerated(c.Context(), clinicID, clientID)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return ok(c, docs)
}

// GET /documents/:id/url
func (h *DocumentHandler) DownloadURL(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid document id")
	}

	url, err := h.svc.DownloadURL(c.Context(), clinicID, documentID)
	if err != nil {
		return mapDocumentError(c, err)
	}
	return ok(c, fiber.Map{"url": url})
}

// DELETE /documents/:id
func (h *DocumentHandler) DeleteGenerated(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid document id")
	}

	if err := h.svc.DeleteGenerated(c.Context(), clinicID, documentID); err != nil {
		return mapDocumentError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapDocumentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, document.ErrTemplateNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, document.ErrMissingName),
		errors.Is(err, document.ErrMissingBody),
		errors.Is(err, document.ErrBadTemplate),
		errors.Is(err, document.ErrPayerMismatch),
		errors.Is(err, document.ErrTemplateInactive):
		return badRequest(c, err.Error())
	case errors.Is(err, document.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return internalError(c)
	}
}
