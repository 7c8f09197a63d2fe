// Package scheduling manages clinician time slots: the bookable windows
// appointments attach to. Booking itself lives in the appointment service;
// this package owns slot creation, blocking and the overlap invariant.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
)

// MinSlotDuration is the shortest bookable window a clinic can publish.
const MinSlotDuration = 15 * time.Minute

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateSlotRequest struct {
	ClinicianID uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
}

// GenerateSlotsRequest cuts the window [From, To) into consecutive slots
// of SlotMinutes each. Candidates overlapping existing slots are skipped
// rather than failing the whole batch.
type GenerateSlotsRequest struct {
	ClinicianID uuid.UUID
	From        time.Time
	To          time.Time
	SlotMinutes int
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	CreateSlot(ctx context.Context, clinicID uuid.UUID, req CreateSlotRequest) (*model.TimeSlot, error)
	GenerateSlots(ctx context.Context, clinicID uuid.UUID, req GenerateSlotsRequest) ([]*model.TimeSlot, error)

	GetSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*model.TimeSlot, error)
	ListSlots(ctx context.Context, clinicID, clinicianID uuid.UUID, from, to time.Time) ([]*model.TimeSlot, error)

	// ListAvailableSlots feeds the public booking page: available status
	// only, clinic-wide or narrowed to one clinician.
	ListAvailableSlots(ctx context.Context, clinicID uuid.UUID, clinicianID *uuid.UUID, from, to time.Time) ([]*model.TimeSlot, error)

	// Block takes an available slot out of circulation (holidays, admin
	// time); Unblock returns it.
	BlockSlot(ctx context.Context, clinicID, slotID uuid.UUID) error
	UnblockSlot(ctx context.Context, clinicID, slotID uuid.UUID) error

	DeleteSlot(ctx context.Context, clinicID, slotID uuid.UUID) error
}

type schedulingService struct {
	db *gorm.DB
}

func New(db *gorm.DB) Service {
	return &schedulingService{db: db}
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

func (s *schedulingService) CreateSlot(ctx context.Context, clinicID uuid.UUID, req CreateSlotRequest) (*model.TimeSlot, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if req.EndTime.Sub(req.StartTime) < MinSlotDuration {
		return nil, ErrInvalidDuration
	}

	overlaps, err := s.hasOverlap(ctx, req.ClinicianID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrOverlappingSlot
	}

	slot := &model.TimeSlot{
		ClinicID:    clinicID,
		ClinicianID: req.ClinicianID,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Status:      model.SlotStatusAvailable,
	}
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

func (s *schedulingService) GenerateSlots(ctx context.Context, clinicID uuid.UUID, req GenerateSlotsRequest) ([]*model.TimeSlot, error) {
	if !req.To.After(req.From) {
		return nil, ErrInvalidTimeRange
	}
	step := time.Duration(req.SlotMinutes) * time.Minute
	if step < MinSlotDuration {
		return nil, ErrInvalidDuration
	}

	var created []*model.TimeSlot
	for start := req.From; !start.Add(step).After(req.To); start = start.Add(step) {
		end := start.Add(step)

		overlaps, err := s.hasOverlap(ctx, req.ClinicianID, start, end)
		if err != nil {
			return created, err
		}
		if overlaps {
			continue
		}

		slot := &model.TimeSlot{
			ClinicID:    clinicID,
			ClinicianID: req.ClinicianID,
			StartTime:   start.UTC(),
			EndTime:     end.UTC(),
			Status:      model.SlotStatusAvailable,
		}
		if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
			return created, fmt.Errorf("create slot: %w", err)
		}
		created = append(created, slot)
	}
	return created, nil
}

// hasOverlap reports whether the clinician already has a slot intersecting
// [start, end). Half-open comparison, so back-to-back slots touch without
// conflicting.
func (s *schedulingService) hasOverlap(ctx context.Context, clinicianID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.TimeSlot{}).
		Where("clinician_id = ? AND start_time < ? AND end_time > ?", clinicianID, end.UTC(), start.UTC()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func (s *schedulingService) GetSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, slotID).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

func (s *schedulingService) ListSlots(ctx context.Context, clinicID, clinicianID uuid.UUID, from, to time.Time) ([]*model.TimeSlot, error) {
	var slots []*model.TimeSlot
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND clinician_id = ? AND start_time >= ? AND start_time < ?",
			clinicID, clinicianID, from.UTC(), to.UTC()).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *schedulingService) ListAvailableSlots(ctx context.Context, clinicID uuid.UUID, clinicianID *uuid.UUID, from, to time.Time) ([]*model.TimeSlot, error) {
	q := s.db.WithContext(ctx).
		Where("clinic_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			clinicID, model.SlotStatusAvailable, from.UTC(), to.UTC())
	if clinicianID != nil {
		q = q.Where("clinician_id = ?", *clinicianID)
	}

	var slots []*model.TimeSlot
	if err := q.Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// ---------------------------------------------------------------------------
// Blocking / deletion
// ---------------------------------------------------------------------------

func (s *schedulingService) BlockSlot(ctx context.Context, clinicID, slotID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.TimeSlot{}).
		Where("clinic_id = ? AND id = ? AND status = ?", clinicID, slotID, model.SlotStatusAvailable).
		Update("status", model.SlotStatusBlocked)
	if res.Error != nil {
		return fmt.Errorf("block slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		slot, err := s.GetSlot(ctx, clinicID, slotID)
		if err != nil {
			return err
		}
		if slot.Status == model.SlotStatusBooked {
			return ErrSlotAlreadyBooked
		}
		return nil
	}
	return nil
}

func (s *schedulingService) UnblockSlot(ctx context.Context, clinicID, slotID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.TimeSlot{}).
		Where("clinic_id = ? AND id = ? AND status = ?", clinicID, slotID, model.SlotStatusBlocked).
		Update("status", model.SlotStatusAvailable)
	if res.Error != nil {
		return fmt.Errorf("unblock slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetSlot(ctx, clinicID, slotID); err != nil {
			return err
		}
		return ErrSlotNotBlocked
	}
	return nil
}

func (s *schedulingService) DeleteSlot(ctx context.Context, clinicID, slotID uuid.UUID) error {
	slot, err := s.GetSlot(ctx, clinicID, slotID)
	if err != nil {
		return err
	}
	if slot.Status == model.SlotStatusBooked {
		return ErrSlotAlreadyBooked
	}

	if err := s.db.WithContext(ctx).Delete(slot).Error; err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
