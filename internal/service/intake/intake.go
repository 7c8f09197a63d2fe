// Package intake handles consultation requests from the public intake form
// through the staff triage workflow: new → in_review → scheduled, ending in
// converted (a client record is created) or declined.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/client"
	"github.com/oveliahealth/ovelia_backend/pkg/util/codes"
	"github.com/oveliahealth/ovelia_backend/pkg/util/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// SubmitRequest is the public intake form payload.
type SubmitRequest struct {
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	PreferredLanguage string
	Reason            string
	Availability      string

	// FormPayload keeps the raw submitted form for later review.
	FormPayload map[string]any
}

type ListRequest struct {
	Page             int
	PerPage          int
	Status           *model.IntakeStatus
	AssignedMemberID *uuid.UUID
}

// ConvertRequest carries the front desk's additions when a request becomes
// a client record. Fields left empty fall back to the intake values.
type ConvertRequest struct {
	FileNumber       string
	HealthCardNumber string
	DateOfBirth      *time.Time
	Notes            string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// Submit registers a request from the public form, assigns a reference
	// code and announces it on the intake subject.
	Submit(ctx context.Context, clinicID uuid.UUID, req SubmitRequest) (*model.ConsultationRequest, error)

	GetByID(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error)

	// GetByReference resolves the code quoted in the acknowledgment email.
	// Not clinic-scoped: codes are globally unique and the lookup is used
	// by the public status page.
	GetByReference(ctx context.Context, referenceCode string) (*model.ConsultationRequest, error)

	List(ctx context.Context, clinicID uuid.UUID, req ListRequest) (*PaginatedResult[*model.ConsultationRequest], error)

	Assign(ctx context.Context, clinicID, intakeID, memberID uuid.UUID) (*model.ConsultationRequest, error)
	StartReview(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error)
	MarkScheduled(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error)
	UpdateTriageNotes(ctx context.Context, clinicID, intakeID uuid.UUID, notes string) (*model.ConsultationRequest, error)

	// Convert creates the client record and closes the request; Decline
	// closes it with a reason. Both are terminal.
	Convert(ctx context.Context, clinicID, intakeID uuid.UUID, req ConvertRequest) (*model.Client, error)
	Decline(ctx context.Context, clinicID, intakeID uuid.UUID, reason string) (*model.ConsultationRequest, error)
}

type intakeService struct {
	db      *gorm.DB
	clients client.Service
	nc      *nats.Conn
}

func New(db *gorm.DB, clients client.Service, nc *nats.Conn) Service {
	return &intakeService{db: db, clients: clients, nc: nc}
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func (s *intakeService) Submit(ctx context.Context, clinicID uuid.UUID, req SubmitRequest) (*model.ConsultationRequest, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, ErrMissingName
	}
	email := strings.TrimSpace(req.Email)
	phoneE164, err := phone.NormalizeCA(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	if email == "" && phoneE164 == "" {
		return nil, ErrMissingContact
	}

	lang := strings.ToLower(strings.TrimSpace(req.PreferredLanguage))
	if lang != "en" {
		lang = "fr"
	}

	var payload datatypes.JSON
	if req.FormPayload != nil {
		raw, err := json.Marshal(req.FormPayload)
		if err != nil {
			return nil, fmt.Errorf("encode form payload: %w", err)
		}
		payload = datatypes.JSON(raw)
	}

	intake := &model.ConsultationRequest{
		ClinicID:          clinicID,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Email:             email,
		Phone:             phoneE164,
		PreferredLanguage: lang,
		Reason:            req.Reason,
		Availability:      req.Availability,
		FormPayload:       payload,
		Status:            model.IntakeStatusNew,
	}

	// Reference codes are random and globally unique; regenerate on the
	// rare collision.
	for attempt := 0; ; attempt++ {
		code, err := codes.GenerateReferenceCode()
		if err != nil {
			return nil, fmt.Errorf("generate reference code: %w", err)
		}
		intake.ReferenceCode = code

		err = s.db.WithContext(ctx).Create(intake).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= 2 {
			return nil, fmt.Errorf("create consultation request: %w", err)
		}
	}

	// Publish NATS event
	if s.nc != nil {
		subject := fmt.Sprintf("ovelia.intake.created.%s", clinicID.String())
		_ = s.nc.Publish(subject, []byte(intake.ID.String()))
	}

	return intake, nil
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func (s *intakeService) GetByID(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error) {
	var intake model.ConsultationRequest
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, intakeID).
		First(&intake).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntakeNotFound
		}
		return nil, fmt.Errorf("get consultation request: %w", err)
	}
	return &intake, nil
}

func (s *intakeService) GetByReference(ctx context.Context, referenceCode string) (*model.ConsultationRequest, error) {
	code := codes.NormalizeCode(referenceCode)
	var intake model.ConsultationRequest
	err := s.db.WithContext(ctx).
		Where("reference_code = ?", code).
		First(&intake).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntakeNotFound
		}
		return nil, fmt.Errorf("get by reference: %w", err)
	}
	return &intake, nil
}

func (s *intakeService) List(ctx context.Context, clinicID uuid.UUID, req ListRequest) (*PaginatedResult[*model.ConsultationRequest], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	offset := (req.Page - 1) * req.PerPage

	q := s.db.WithContext(ctx).Model(&model.ConsultationRequest{}).
		Where("clinic_id = ?", clinicID)

	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	if req.AssignedMemberID != nil {
		q = q.Where("assigned_member_id = ?", *req.AssignedMemberID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count consultation requests: %w", err)
	}

	var intakes []*model.ConsultationRequest
	if err := q.Order("created_at DESC").Offset(offset).Limit(req.PerPage).Find(&intakes).Error; err != nil {
		return nil, fmt.Errorf("list consultation requests: %w", err)
	}

	totalPages := (int(total) + req.PerPage - 1) / req.PerPage
	return &PaginatedResult[*model.ConsultationRequest]{
		Data:       intakes,
		Total:      int(total),
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages,
	}, nil
}

// ---------------------------------------------------------------------------
// Triage workflow
// ---------------------------------------------------------------------------

func (s *intakeService) Assign(ctx context.Context, clinicID, intakeID, memberID uuid.UUID) (*model.ConsultationRequest, error) {
	intake, err := s.getOpen(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}

	intake.AssignedMemberID = &memberID
	if intake.Status == model.IntakeStatusNew {
		intake.Status = model.IntakeStatusInReview
	}

	if err := s.db.WithContext(ctx).Save(intake).Error; err != nil {
		return nil, fmt.Errorf("assign consultation request: %w", err)
	}
	return intake, nil
}

func (s *intakeService) StartReview(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error) {
	return s.setStatus(ctx, clinicID, intakeID, model.IntakeStatusInReview)
}

func (s *intakeService) MarkScheduled(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error) {
	return s.setStatus(ctx, clinicID, intakeID, model.IntakeStatusScheduled)
}

func (s *intakeService) UpdateTriageNotes(ctx context.Context, clinicID, intakeID uuid.UUID, notes string) (*model.ConsultationRequest, error) {
	intake, err := s.getOpen(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}

	intake.TriageNotes = notes
	if err := s.db.WithContext(ctx).Model(intake).Update("triage_notes", notes).Error; err != nil {
		return nil, fmt.Errorf("update triage notes: %w", err)
	}
	return intake, nil
}

// ---------------------------------------------------------------------------
// Terminal transitions
// ---------------------------------------------------------------------------

func (s *intakeService) Convert(ctx context.Context, clinicID, intakeID uuid.UUID, req ConvertRequest) (*model.Client, error) {
	intake, err := s.getOpen(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}

	newClient, err := s.clients.Create(ctx, clinicID, client.CreateClientRequest{
		FileNumber:       req.FileNumber,
		FirstName:        intake.FirstName,
		LastName:         intake.LastName,
		Email:            intake.Email,
		Phone:            intake.Phone,
		DateOfBirth:      req.DateOfBirth,
		Language:         intake.PreferredLanguage,
		HealthCardNumber: req.HealthCardNumber,
		ChiefComplaint:   intake.Reason,
		Notes:            req.Notes,
		ReferralSource:   "consultation request " + intake.ReferenceCode,
		IntakeRequestID:  &intake.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("convert to client: %w", err)
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(intake).Updates(map[string]any{
		"status":       model.IntakeStatusConverted,
		"client_id":    newClient.ID,
		"converted_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("close consultation request: %w", err)
	}
	return newClient, nil
}

func (s *intakeService) Decline(ctx context.Context, clinicID, intakeID uuid.UUID, reason string) (*model.ConsultationRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	intake, err := s.getOpen(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}

	intake.Status = model.IntakeStatusDeclined
	intake.DeclineReason = reason
	err = s.db.WithContext(ctx).Model(intake).Updates(map[string]any{
		"status":         model.IntakeStatusDeclined,
		"decline_reason": reason,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("decline consultation request: %w", err)
	}
	return intake, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// getOpen loads the request and rejects terminal states.
func (s *intakeService) getOpen(ctx context.Context, clinicID, intakeID uuid.UUID) (*model.ConsultationRequest, error) {
	intake, err := s.GetByID(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}
	if intake.Status == model.IntakeStatusConverted || intake.Status == model.IntakeStatusDeclined {
		return nil, ErrIntakeClosed
	}
	return intake, nil
}

func (s *intakeService) setStatus(ctx context.Context, clinicID, intakeID uuid.UUID, status model.IntakeStatus) (*model.ConsultationRequest, error) {
	intake, err := s.getOpen(ctx, clinicID, intakeID)
	if err != nil {
		return nil, err
	}

	intake.Status = status
	if err := s.db.WithContext(ctx).Model(intake).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return intake, nil
}
