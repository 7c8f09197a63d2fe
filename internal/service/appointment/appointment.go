// Package appointment books sessions into clinician time slots and drives
// their lifecycle. Completing a payer-covered appointment records the
// billed split through the payer service, so the coverage counters and the
// appointment row stay in step.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// BookRequest books an appointment either into an existing slot (SlotID
// set, times and clinician taken from the slot) or directly with explicit
// times for sessions entered after the fact.
type BookRequest struct {
	ClientID uuid.UUID
	SlotID   *uuid.UUID

	// Used when SlotID is nil.
	ClinicianID uuid.UUID
	StartTime   time.Time
	EndTime     time.Time

	ServiceName string
	FeeCents    int64
	PayerID     *uuid.UUID
	Notes       string
}

type ListRequest struct {
	ClinicianID *uuid.UUID
	ClientID    *uuid.UUID
	Status      *model.AppointmentStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PerPage     int
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Book(ctx context.Context, clinicID uuid.UUID, req BookRequest) (*model.Appointment, error)
	GetByID(ctx context.Context, clinicID, apptID uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, clinicID uuid.UUID, req ListRequest) (*PaginatedResult[model.Appointment], error)

	// Cancel frees the slot for rebooking. Cancelling an already cancelled
	// appointment is a no-op.
	Cancel(ctx context.Context, clinicID, apptID uuid.UUID) error

	// Complete marks the session as held and, when a payer is attached,
	// records the billed split against its coverage. The returned row
	// carries the sequence number and amounts that were billed.
	Complete(ctx context.Context, clinicID, apptID uuid.UUID) (*model.Appointment, error)

	MarkNoShow(ctx context.Context, clinicID, apptID uuid.UUID) error
}

type appointmentService struct {
	db     *gorm.DB
	payers payer.Service
	nc     *nats.Conn
}

func New(db *gorm.DB, payers payer.Service, nc *nats.Conn) Service {
	return &appointmentService{db: db, payers: payers, nc: nc}
}

// ---------------------------------------------------------------------------
// Booking
// ---------------------------------------------------------------------------

func (s *appointmentService) Book(ctx context.Context, clinicID uuid.UUID, req BookRequest) (*model.Appointment, error) {
	if req.FeeCents < 0 {
		return nil, ErrInvalidFee
	}
	if err := s.checkClient(ctx, clinicID, req.ClientID); err != nil {
		return nil, err
	}
	if req.PayerID != nil {
		if err := s.checkPayer(ctx, clinicID, req.ClientID, *req.PayerID); err != nil {
			return nil, err
		}
	}

	appt := &model.Appointment{
		ClinicID:    clinicID,
		ClientID:    req.ClientID,
		ServiceName: req.ServiceName,
		FeeCents:    req.FeeCents,
		Status:      model.AppointmentStatusScheduled,
		PayerID:     req.PayerID,
		Notes:       req.Notes,
	}

	if req.SlotID == nil {
		if !req.EndTime.After(req.StartTime) {
			return nil, ErrInvalidTimeRange
		}
		appt.ClinicianID = req.ClinicianID
		appt.StartTime = req.StartTime.UTC()
		appt.EndTime = req.EndTime.UTC()
		if err := s.db.WithContext(ctx).Create(appt).Error; err != nil {
			return nil, fmt.Errorf("create appointment: %w", err)
		}
		return appt, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TimeSlot{}).
			Where("id = ? AND clinic_id = ? AND status = ?", *req.SlotID, clinicID, model.SlotStatusAvailable).
			Update("status", model.SlotStatusBooked)
		if res.Error != nil {
			return fmt.Errorf("reserve slot: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var slot model.TimeSlot
			err := tx.Where("clinic_id = ? AND id = ?", clinicID, *req.SlotID).First(&slot).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			if err != nil {
				return fmt.Errorf("load slot: %w", err)
			}
			return ErrSlotUnavailable
		}

		var slot model.TimeSlot
		if err := tx.Where("id = ?", *req.SlotID).First(&slot).Error; err != nil {
			return fmt.Errorf("load slot: %w", err)
		}

		appt.ClinicianID = slot.ClinicianID
		appt.SlotID = req.SlotID
		appt.StartTime = slot.StartTime
		appt.EndTime = slot.EndTime

		if err := tx.Create(appt).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func (s *appointmentService) GetByID(ctx context.Context, clinicID, apptID uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, apptID).
		First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appt, nil
}

func (s *appointmentService) List(ctx context.Context, clinicID uuid.UUID, req ListRequest) (*PaginatedResult[model.Appointment], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	offset := (req.Page - 1) * req.PerPage

	q := s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("clinic_id = ?", clinicID)

	if req.ClinicianID != nil {
		q = q.Where("clinician_id = ?", *req.ClinicianID)
	}
	if req.ClientID != nil {
		q = q.Where("client_id = ?", *req.ClientID)
	}
	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	if req.From != nil {
		q = q.Where("start_time >= ?", req.From.UTC())
	}
	if req.To != nil {
		q = q.Where("start_time < ?", req.To.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	var appts []model.Appointment
	err := q.Order("start_time DESC").
		Offset(offset).
		Limit(req.PerPage).
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	totalPages := (int(total) + req.PerPage - 1) / req.PerPage
	return &PaginatedResult[model.Appointment]{
		Data:       appts,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages,
	}, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (s *appointmentService) Cancel(ctx context.Context, clinicID, apptID uuid.UUID) error {
	appt, err := s.GetByID(ctx, clinicID, apptID)
	if err != nil {
		return err
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return nil
	}
	if appt.Status != model.AppointmentStatusScheduled {
		return ErrNotScheduled
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(appt).Updates(map[string]any{
		"status":       model.AppointmentStatusCancelled,
		"cancelled_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if appt.SlotID != nil {
		_ = s.db.WithContext(ctx).Model(&model.TimeSlot{}).
			Where("id = ? AND status = ?", *appt.SlotID, model.SlotStatusBooked).
			Update("status", model.SlotStatusAvailable).Error
	}
	return nil
}

func (s *appointmentService) Complete(ctx context.Context, clinicID, apptID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, clinicID, apptID)
	if err != nil {
		return nil, err
	}

	// Claim the row first so two concurrent completions cannot both bill
	// the payer.
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("clinic_id = ? AND id = ? AND status = ?", clinicID, apptID, model.AppointmentStatusScheduled).
		Updates(map[string]any{
			"status":       model.AppointmentStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("complete appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotScheduled
	}
	appt.Status = model.AppointmentStatusCompleted
	appt.CompletedAt = &now

	if appt.PayerID == nil {
		return appt, nil
	}

	ev, status, err := s.payers.RecordBilledAppointment(ctx, clinicID, *appt.PayerID, appt.ServiceName, appt.StartTime, appt.FeeCents)
	if err != nil {
		// Release the claim so the billing problem can be fixed and the
		// completion retried.
		_ = s.db.WithContext(ctx).Model(&model.Appointment{}).
			Where("id = ?", apptID).
			Updates(map[string]any{
				"status":       model.AppointmentStatusScheduled,
				"completed_at": nil,
			}).Error
		return nil, fmt.Errorf("bill payer: %w", err)
	}

	err = s.db.WithContext(ctx).Model(appt).Updates(map[string]any{
		"sequence_number":     ev.Index,
		"payer_amount_cents":  ev.PayerCents,
		"client_amount_cents": ev.ClientCents,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("record billed split: %w", err)
	}
	appt.SequenceNumber = ev.Index
	appt.PayerAmountCents = ev.PayerCents
	appt.ClientAmountCents = ev.ClientCents

	if status != nil && status.Warning && s.nc != nil {
		// Publish NATS event
		subject := fmt.Sprintf("ovelia.payer.budget_low.%s", clinicID.String())
		_ = s.nc.Publish(subject, []byte(appt.PayerID.String()))
	}

	return appt, nil
}

func (s *appointmentService) MarkNoShow(ctx context.Context, clinicID, apptID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.Appointment{}).
		Where("clinic_id = ? AND id = ? AND status = ?", clinicID, apptID, model.AppointmentStatusScheduled).
		Update("status", model.AppointmentStatusNoShow)
	if res.Error != nil {
		return fmt.Errorf("mark no-show: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetByID(ctx, clinicID, apptID); err != nil {
			return err
		}
		return ErrNotScheduled
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *appointmentService) checkClient(ctx context.Context, clinicID, clientID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND id = ?", clinicID, clientID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check client: %w", err)
	}
	if count == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *appointmentService) checkPayer(ctx context.Context, clinicID, clientID, payerID uuid.UUID) error {
	p, err := s.payers.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return err
	}
	if p.ClientID != clientID {
		return ErrPayerMismatch
	}
	if !p.IsActive {
		return payer.ErrPayerInactive
	}
	return nil
}
