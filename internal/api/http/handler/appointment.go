package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/appointment"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
)

// AppointmentHandler serves the booking lifecycle: book, list, cancel,
// complete and no-show.
type AppointmentHandler struct {
	svc appointment.Service
}

func NewAppointmentHandler(svc appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

// timePtrQuery parses an optional RFC3339 query value. Absent or
// malformed values come back nil.
func timePtrQuery(c fiber.Ctx, key string) *time.Time {
	s := c.Query(key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func mapAppointmentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrSlotNotFound),
		errors.Is(err, appointment.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable),
		errors.Is(err, appointment.ErrNotScheduled):
		return conflict(c, err.Error())
	case errors.Is(err, appointment.ErrInvalidTimeRange),
		errors.Is(err, appointment.ErrInvalidFee),
		errors.Is(err, appointment.ErrPayerMismatch):
		return badRequest(c, err.Error())
	// Billing failures from Complete carry the payer sentinel.
	case errors.Is(err, payer.ErrPayerInactive),
		errors.Is(err, payer.ErrPayerExpired):
		return conflict(c, err.Error())
	default:
		return internalError(c)
	}
}

// POST /appointments
func (h *AppointmentHandler) Book(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClientID    string    `json:"client_id"`
		SlotID      *string   `json:"slot_id"`
		ClinicianID string    `json:"clinician_id"`
		StartTime   time.Time `json:"start_time"`
		EndTime     time.Time `json:"end_time"`
		ServiceName string    `json:"service_name"`
		FeeCents    int64     `json:"fee_cents"`
		PayerID     *string   `json:"payer_id"`
		Notes       string    `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}

	req := appointment.BookRequest{
		ClientID:    clientID,
		ServiceName: body.ServiceName,
		FeeCents:    body.FeeCents,
		Notes:       body.Notes,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
	}
	// A slot reference wins over a free-form clinician and time range.
	if body.SlotID != nil {
		id, err := uuid.Parse(*body.SlotID)
		if err != nil {
			return badRequest(c, "invalid slot_id")
		}
		req.SlotID = &id
	} else {
		clinicianID, err := uuid.Parse(body.ClinicianID)
		if err != nil {
			return badRequest(c, "invalid clinician_id")
		}
		req.ClinicianID = clinicianID
	}
	if body.PayerID != nil {
		id, err := uuid.Parse(*body.PayerID)
		if err != nil {
			return badRequest(c, "invalid payer_id")
		}
		req.PayerID = &id
	}

	appt, err := h.svc.Book(c.Context(), clinicID, req)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return created(c, appt)
}

// GET /appointments
func (h *AppointmentHandler) List(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var q struct {
		Page        int    `query:"page"`
		PerPage     int    `query:"per_page"`
		ClinicianID string `query:"clinician_id"`
		ClientID    string `query:"client_id"`
		Status      string `query:"status"`
	}
	_ = c.Bind().Query(&q)

	req := appointment.ListRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
		From:    timePtrQuery(c, "from"),
		To:      timePtrQuery(c, "to"),
	}
	if q.ClinicianID != "" {
		id, err := uuid.Parse(q.ClinicianID)
		if err != nil {
			return badRequest(c, "invalid clinician_id")
		}
		req.ClinicianID = &id
	}
	if q.ClientID != "" {
		id, err := uuid.Parse(q.ClientID)
		if err != nil {
			return badRequest(c, "invalid client_id")
		}
		req.ClientID = &id
	}
	if q.Status != "" {
		st := model.AppointmentStatus(q.Status)
		req.Status = &st
	}

	result, err := h.svc.List(c.Context(), clinicID, req)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, fiber.Map{
		"appointments": result.Data,
		"total":        result.Total,
		"page":         result.Page,
		"per_page":     result.PerPage,
		"total_pages":  result.TotalPages,
	})
}

// GET /appointments/:id
func (h *AppointmentHandler) Get(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}
	appt, err := h.svc.GetByID(c.Context(), clinicID, apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, appt)
}

// POST /appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}
	if err := h.svc.Cancel(c.Context(), clinicID, apptID); err != nil {
		return mapAppointmentError(c, err)
	}
	return noContent(c)
}

// POST /appointments/:id/complete
func (h *AppointmentHandler) Complete(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}
	appt, err := h.svc.Complete(c.Context(), clinicID, apptID)
	if err != nil {
		return mapAppointmentError(c, err)
	}
	return ok(c, appt)
}

// POST /appointments/:id/no-show
func (h *AppointmentHandler) MarkNoShow(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	apptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid appointment id")
	}
	if err := h.svc.MarkNoShow(c.Context(), clinicID, apptID); err != nil {
		return mapAppointmentError(c, err)
	}
	return noContent(c)
}
