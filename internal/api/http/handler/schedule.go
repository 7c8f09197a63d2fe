package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/service/scheduling"
)

// ScheduleHandler serves clinician availability: slot CRUD for staff and
// the public open-slot listing the booking widget polls.
type ScheduleHandler struct {
	svc scheduling.Service
}

func NewScheduleHandler(svc scheduling.Service) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// timeRangeQuery parses optional from/to query params, defaulting to the
// next month.
func timeRangeQuery(c fiber.Ctx) (time.Time, time.Time) {
	from := time.Now()
	to := from.AddDate(0, 1, 0)

	if s := c.Query("from"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			from = t
		}
	}
	if s := c.Query("to"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			to = t
		}
	}
	return from, to
}

func mapScheduleError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrSlotNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotAlreadyBooked),
		errors.Is(err, scheduling.ErrOverlappingSlot):
		return conflict(c, err.Error())
	case errors.Is(err, scheduling.ErrSlotNotBlocked),
		errors.Is(err, scheduling.ErrInvalidTimeRange),
		errors.Is(err, scheduling.ErrInvalidDuration):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// ---------------------------------------------------------------------------
// Slots
// ---------------------------------------------------------------------------

// POST /slots
func (h *ScheduleHandler) CreateSlot(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClinicianID string    `json:"clinician_id"`
		StartTime   time.Time `json:"start_time"`
		EndTime     time.Time `json:"end_time"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	clinicianID, err := uuid.Parse(body.ClinicianID)
	if err != nil {
		return badRequest(c, "invalid clinician_id")
	}

	slot, err := h.svc.CreateSlot(c.Context(), clinicID, scheduling.CreateSlotRequest{
		ClinicianID: clinicianID,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
	})
	if err != nil {
		return mapScheduleError(c, err)
	}
	return created(c, slot)
}

// POST /slots/generate
func (h *ScheduleHandler) GenerateSlots(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClinicianID string    `json:"clinician_id"`
		From        time.Time `json:"from"`
		To          time.Time `json:"to"`
		SlotMinutes int       `json:"slot_minutes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	clinicianID, err := uuid.Parse(body.ClinicianID)
	if err != nil {
		return badRequest(c, "invalid clinician_id")
	}

	slots, err := h.svc.GenerateSlots(c.Context(), clinicID, scheduling.GenerateSlotsRequest{
		ClinicianID: clinicianID,
		From:        body.From,
		To:          body.To,
		SlotMinutes: body.SlotMinutes,
	})
	if err != nil {
		return mapScheduleError(c, err)
	}
	return created(c, fiber.Map{"slots": slots, "count": len(slots)})
}

// GET /slots
func (h *ScheduleHandler) ListSlots(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	clinicianID, valid := memberIDFromLocals(c)
	if s := c.Query("clinician_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return badRequest(c, "invalid clinician_id")
		}
		clinicianID = id
	} else if !valid {
		return badRequest(c, "clinician_id is required")
	}

	from, to := timeRangeQuery(c)
	slots, err := h.svc.ListSlots(c.Context(), clinicID, clinicianID, from, to)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, slots)
}

// GET /slots/:id
func (h *ScheduleHandler) GetSlot(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid slot id")
	}

	slot, err := h.svc.GetSlot(c.Context(), clinicID, slotID)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, slot)
}

// POST /slots/:id/block
func (h *ScheduleHandler) BlockSlot(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid slot id")
	}

	if err := h.svc.BlockSlot(c.Context(), clinicID, slotID); err != nil {
		return mapScheduleError(c, err)
	}
	return noContent(c)
}

// POST /slots/:id/unblock
func (h *ScheduleHandler) UnblockSlot(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid slot id")
	}

	if err := h.svc.UnblockSlot(c.Context(), clinicID, slotID); err != nil {
		return mapScheduleError(c, err)
	}
	return noContent(c)
}

// DELETE /slots/:id
func (h *ScheduleHandler) DeleteSlot(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	slotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid slot id")
	}

	if err := h.svc.DeleteSlot(c.Context(), clinicID, slotID); err != nil {
		return mapScheduleError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Public availability
// ---------------------------------------------------------------------------

// GET /public/clinics/:id/available-slots
func (h *ScheduleHandler) ListAvailableSlots(c fiber.Ctx) error {
	clinicID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	var clinicianID *uuid.UUID
	if s := c.Query("clinician_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return badRequest(c, "invalid clinician_id")
		}
		clinicianID = &id
	}

	from, to := timeRangeQuery(c)
	slots, err := h.svc.ListAvailableSlots(c.Context(), clinicID, clinicianID, from, to)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, slots)
}
