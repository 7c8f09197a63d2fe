package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/client"
	"github.com/oveliahealth/ovelia_backend/internal/service/clinic"
	"github.com/oveliahealth/ovelia_backend/internal/service/intake"
)

// IntakeHandler serves both the public consultation-request form and the
// staff triage endpoints.
type IntakeHandler struct {
	svc     intake.Service
	clinics clinic.Service
}

func NewIntakeHandler(svc intake.Service, clinics clinic.Service) *IntakeHandler {
	return &IntakeHandler{svc: svc, clinics: clinics}
}

// ---------------------------------------------------------------------------
// Public form
// ---------------------------------------------------------------------------

// POST /public/clinics/:slug/consultation-requests
func (h *IntakeHandler) Submit(c fiber.Ctx) error {
	cl, err := h.clinics.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return mapClinicError(c, err)
	}

	var body struct {
		FirstName         string         `json:"first_name"`
		LastName          string         `json:"last_name"`
		Email             string         `json:"email"`
		Phone             string         `json:"phone"`
		PreferredLanguage string         `json:"preferred_language"`
		Reason            string         `json:"reason"`
		Availability      string         `json:"availability"`
		FormPayload       map[string]any `json:"form_payload"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := h.svc.Submit(c.Context(), cl.ID, intake.SubmitRequest{
		FirstName:         body.FirstName,
		LastName:          body.LastName,
		Email:             body.Email,
		Phone:             body.Phone,
		PreferredLanguage: body.PreferredLanguage,
		Reason:            body.Reason,
		Availability:      body.Availability,
		FormPayload:       body.FormPayload,
	})
	if err != nil {
		return mapIntakeError(c, err)
	}

	return created(c, fiber.Map{
		"reference_code": req.ReferenceCode,
		"status":         req.Status,
	})
}

// GET /public/consultation-requests/:reference
//
// The status page only gets the fields the requester already knows plus the
// request state; triage notes and assignments stay internal.
func (h *IntakeHandler) GetByReference(c fiber.Ctx) error {
	req, err := h.svc.GetByReference(c.Context(), c.Params("reference"))
	if err != nil {
		return mapIntakeError(c, err)
	}

	return ok(c, fiber.Map{
		"reference_code": req.ReferenceCode,
		"status":         req.Status,
		"submitted_at":   req.CreatedAt,
	})
}

// ---------------------------------------------------------------------------
// Staff triage
// ---------------------------------------------------------------------------

// GET /consultation-requests
func (h *IntakeHandler) List(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var q struct {
		Page     int    `query:"page"`
		PerPage  int    `query:"per_page"`
		Status   string `query:"status"`
		Assigned string `query:"assigned_member_id"`
	}
	_ = c.Bind().Query(&q)

	req := intake.ListRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Status != "" {
		st := model.IntakeStatus(q.Status)
		req.Status = &st
	}
	if q.Assigned != "" {
		id, err := uuid.Parse(q.Assigned)
		if err != nil {
			return badRequest(c, "invalid assigned_member_id")
		}
		req.AssignedMemberID = &id
	}

	result, err := h.svc.List(c.Context(), clinicID, req)
	if err != nil {
		return mapIntakeError(c, err)
	}

	return ok(c, fiber.Map{
		"requests":    result.Data,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GET /consultation-requests/:id
func (h *IntakeHandler) Get(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	req, err := h.svc.GetByID(c.Context(), clinicID, intakeID)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// POST /consultation-requests/:id/assign
func (h *IntakeHandler) Assign(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	var body struct {
		MemberID string `json:"member_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	memberID, err := uuid.Parse(body.MemberID)
	if err != nil {
		return badRequest(c, "invalid member_id")
	}

	req, err := h.svc.Assign(c.Context(), clinicID, intakeID, memberID)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// POST /consultation-requests/:id/review
func (h *IntakeHandler) StartReview(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	req, err := h.svc.StartReview(c.Context(), clinicID, intakeID)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// POST /consultation-requests/:id/scheduled
func (h *IntakeHandler) MarkScheduled(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	req, err := h.svc.MarkScheduled(c.Context(), clinicID, intakeID)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// PATCH /consultation-requests/:id/notes
func (h *IntakeHandler) UpdateNotes(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := h.svc.UpdateTriageNotes(c.Context(), clinicID, intakeID, body.Notes)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// POST /consultation-requests/:id/convert
func (h *IntakeHandler) Convert(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	var body struct {
		FileNumber       string     `json:"file_number"`
		HealthCardNumber string     `json:"health_card_number"`
		DateOfBirth      *time.Time `json:"date_of_birth"`
		Notes            string     `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.Convert(c.Context(), clinicID, intakeID, intake.ConvertRequest{
		FileNumber:       body.FileNumber,
		HealthCardNumber: body.HealthCardNumber,
		DateOfBirth:      body.DateOfBirth,
		Notes:            body.Notes,
	})
	if err != nil {
		return mapIntakeError(c, err)
	}

	return created(c, cl)
}

// POST /consultation-requests/:id/decline
func (h *IntakeHandler) Decline(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	intakeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid consultation request id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := h.svc.Decline(c.Context(), clinicID, intakeID, body.Reason)
	if err != nil {
		return mapIntakeError(c, err)
	}
	return ok(c, req)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapIntakeError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, intake.ErrIntakeNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, intake.ErrIntakeClosed),
		errors.Is(err, client.ErrDuplicateFileNumber),
		errors.Is(err, client.ErrDuplicateHealthCard):
		return conflict(c, err.Error())
	case errors.Is(err, intake.ErrMissingName),
		errors.Is(err, intake.ErrMissingContact),
		errors.Is(err, intake.ErrInvalidPhone),
		errors.Is(err, intake.ErrMissingReason),
		errors.Is(err, client.ErrInvalidHealthCard):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}
