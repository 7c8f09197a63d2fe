package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/relation"
)

type RelationHandler struct {
	svc relation.Service
}

func NewRelationHandler(svc relation.Service) *RelationHandler {
	return &RelationHandler{svc: svc}
}

// POST /relations
func (h *RelationHandler) Create(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClientID        string `json:"client_id"`
		RelatedClientID string `json:"related_client_id"`
		Type            string `json:"type"`
		Notes           string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}
	relatedID, err := uuid.Parse(body.RelatedClientID)
	if err != nil {
		return badRequest(c, "invalid related_client_id")
	}

	rel, err := h.svc.Create(c.Context(), clinicID, relation.CreateRelationRequest{
		ClientID:        clientID,
		RelatedClientID: relatedID,
		Type:            model.RelationKind(body.Type),
		Notes:           body.Notes,
	})
	if err != nil {
		return mapRelationError(c, err)
	}

	return created(c, rel)
}

// GET /clients/:id/relations
func (h *RelationHandler) ListForClient(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	views, err := h.svc.ListForClient(c.Context(), clinicID, clientID)
	if err != nil {
		return mapRelationError(c, err)
	}
	return ok(c, views)
}

// DELETE /relations/:id
func (h *RelationHandler) Delete(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	relationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid relation id")
	}

	if err := h.svc.Delete(c.Context(), clinicID, relationID); err != nil {
		return mapRelationError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapRelationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, relation.ErrRelationNotFound),
		errors.Is(err, relation.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, relation.ErrDuplicateRelation):
		return conflict(c, err.Error())
	case errors.Is(err, relation.ErrSelfRelation),
		errors.Is(err, relation.ErrUnknownRelationType):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}
