// Package client manages clinic-scoped client (patient) records. Clients
// are archived rather than deleted so relations, payers and documents keep
// a valid anchor; the RAMQ health card number is encrypted at rest with a
// hash column for duplicate lookups.
package client

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
	"github.com/oveliahealth/ovelia_backend/pkg/util/phone"
)

// reHealthCard matches a normalized RAMQ number: four letters then eight
// digits.
var reHealthCard = regexp.MustCompile(`^[A-Z]{4}[0-9]{8}$`)

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

type CreateClientRequest struct {
	// FileNumber is assigned by the clinic; left empty, the service
	// generates the next sequential number.
	FileNumber string

	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth *time.Time
	Language    string

	Address    string
	City       string
	PostalCode string

	// HealthCardNumber is the RAMQ number; stored encrypted.
	HealthCardNumber string

	ReferralSource string
	ChiefComplaint string
	Notes          string

	// IntakeRequestID links back to the consultation request the client
	// was converted from.
	IntakeRequestID *uuid.UUID
}

type UpdateClientRequest struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	DateOfBirth    *time.Time
	Language       *string
	Address        *string
	City           *string
	PostalCode     *string
	ReferralSource *string
	ChiefComplaint *string
	Notes          *string
}

type ListClientsRequest struct {
	Page    int
	PerPage int
	Status  *model.ClientStatus

	// Search matches name, file number and email, case-insensitively.
	Search string

	Order string // asc | desc on created_at
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, clinicID uuid.UUID, req CreateClientRequest) (*model.Client, error)
	GetByID(ctx context.Context, clinicID, clientID uuid.UUID) (*model.Client, error)
	GetByFileNumber(ctx context.Context, clinicID uuid.UUID, fileNumber string) (*model.Client, error)
	List(ctx context.Context, clinicID uuid.UUID, req ListClientsRequest) (*PaginatedResult[*model.Client], error)
	Update(ctx context.Context, clinicID, clientID uuid.UUID, req UpdateClientRequest) (*model.Client, error)

	// Archive retires the record without deleting it; Restore reverses it.
	Archive(ctx context.Context, clinicID, clientID uuid.UUID) error
	Restore(ctx context.Context, clinicID, clientID uuid.UUID) error

	// SetHealthCard validates, deduplicates and encrypts the RAMQ number.
	// RevealHealthCard decrypts it for display; FindByHealthCard locates an
	// existing client by number without decrypting anything.
	SetHealthCard(ctx context.Context, clinicID, clientID uuid.UUID, number string) error
	RevealHealthCard(ctx context.Context, clinicID, clientID uuid.UUID) (string, error)
	FindByHealthCard(ctx context.Context, clinicID uuid.UUID, number string) (*model.Client, error)
}

type clientService struct {
	db  *gorm.DB
	box *crypto.Box
}

func New(db *gorm.DB, box *crypto.Box) Service {
	return &clientService{db: db, box: box}
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

func (s *clientService) Create(ctx context.Context, clinicID uuid.UUID, req CreateClientRequest) (*model.Client, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, ErrMissingName
	}

	lang, err := normalizeLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	phoneE164, err := phone.NormalizeCA(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}

	c := &model.Client{
		ClinicID:        clinicID,
		FileNumber:      strings.TrimSpace(req.FileNumber),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Email:           strings.TrimSpace(req.Email),
		Phone:           phoneE164,
		DateOfBirth:     req.DateOfBirth,
		Language:        lang,
		Address:         req.Address,
		City:            req.City,
		PostalCode:      req.PostalCode,
		Status:          model.ClientStatusActive,
		ReferralSource:  req.ReferralSource,
		ChiefComplaint:  req.ChiefComplaint,
		Notes:           req.Notes,
		IntakeRequestID: req.IntakeRequestID,
	}

	if req.HealthCardNumber != "" {
		if err := s.attachHealthCard(ctx, clinicID, c, req.HealthCardNumber); err != nil {
			return nil, err
		}
	}

	if c.FileNumber != "" {
		if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateFileNumber
			}
			return nil, fmt.Errorf("create client: %w", err)
		}
		return c, nil
	}

	// Generated numbers can collide under concurrent creates; retry with a
	// fresh number instead of surfacing the conflict.
	for attempt := 0; attempt < 3; attempt++ {
		n, err := s.nextFileNumber(ctx, clinicID, attempt)
		if err != nil {
			return nil, err
		}
		c.FileNumber = n

		err = s.db.WithContext(ctx).Create(c).Error
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create client: %w", err)
		}
	}
	return nil, ErrDuplicateFileNumber
}

func (s *clientService) GetByID(ctx context.Context, clinicID, clientID uuid.UUID) (*model.Client, error) {
	var c model.Client
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, clientID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

func (s *clientService) GetByFileNumber(ctx context.Context, clinicID uuid.UUID, fileNumber string) (*model.Client, error) {
	var c model.Client
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND file_number = ?", clinicID, strings.TrimSpace(fileNumber)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client by file number: %w", err)
	}
	return &c, nil
}

func (s *clientService) List(ctx context.Context, clinicID uuid.UUID, req ListClientsRequest) (*PaginatedResult[*model.Client], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	offset := (req.Page - 1) * req.PerPage

	q := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ?", clinicID)

	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	if term := strings.TrimSpace(req.Search); term != "" {
		// LOWER/LIKE instead of ILIKE keeps the query portable to the
		// sqlite test driver.
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(file_number) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}

	order := "created_at DESC"
	if req.Order == "asc" {
		order = "created_at ASC"
	}

	var clients []*model.Client
	if err := q.Order(order).Offset(offset).Limit(req.PerPage).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	totalPages := (int(total) + req.PerPage - 1) / req.PerPage
	return &PaginatedResult[*model.Client]{
		Data:       clients,
		Total:      int(total),
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages,
	}, nil
}

func (s *clientService) Update(ctx context.Context, clinicID, clientID uuid.UUID, req UpdateClientRequest) (*model.Client, error) {
	c, err := s.GetByID(ctx, clinicID, clientID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, ErrMissingName
		}
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, ErrMissingName
		}
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		normalized, err := phone.NormalizeCA(*req.Phone)
		if err != nil {
			return nil, ErrInvalidPhone
		}
		c.Phone = normalized
	}
	if req.DateOfBirth != nil {
		c.DateOfBirth = req.DateOfBirth
	}
	if req.Language != nil {
		lang, err := normalizeLanguage(*req.Language)
		if err != nil {
			return nil, err
		}
		c.Language = lang
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if req.City != nil {
		c.City = *req.City
	}
	if req.PostalCode != nil {
		c.PostalCode = *req.PostalCode
	}
	if req.ReferralSource != nil {
		c.ReferralSource = *req.ReferralSource
	}
	if req.ChiefComplaint != nil {
		c.ChiefComplaint = *req.ChiefComplaint
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}

	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Archive
// ---------------------------------------------------------------------------

func (s *clientService) Archive(ctx context.Context, clinicID, clientID uuid.UUID) error {
	c, err := s.GetByID(ctx, clinicID, clientID)
	if err != nil {
		return err
	}
	if c.Status == model.ClientStatusArchived {
		return nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"status":      model.ClientStatusArchived,
		"archived_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("archive client: %w", err)
	}
	return nil
}

func (s *clientService) Restore(ctx context.Context, clinicID, clientID uuid.UUID) error {
	c, err := s.GetByID(ctx, clinicID, clientID)
	if err != nil {
		return err
	}
	if c.Status == model.ClientStatusActive {
		return nil
	}

	err = s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"status":      model.ClientStatusActive,
		"archived_at": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("restore client: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Health card
// ---------------------------------------------------------------------------

func (s *clientService) SetHealthCard(ctx context.Context, clinicID, clientID uuid.UUID, number string) error {
	c, err := s.GetByID(ctx, clinicID, clientID)
	if err != nil {
		return err
	}
	if err := s.attachHealthCard(ctx, clinicID, c, number); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"health_card":      c.HealthCardEncrypted,
		"health_card_hash": c.HealthCardHash,
	}).Error
	if err != nil {
		return fmt.Errorf("set health card: %w", err)
	}
	return nil
}

func (s *clientService) RevealHealthCard(ctx context.Context, clinicID, clientID uuid.UUID) (string, error) {
	c, err := s.GetByID(ctx, clinicID, clientID)
	if err != nil {
		return "", err
	}
	if c.HealthCardEncrypted == "" {
		return "", nil
	}

	number, err := s.box.Decrypt(c.HealthCardEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt health card: %w", err)
	}
	return number, nil
}

func (s *clientService) FindByHealthCard(ctx context.Context, clinicID uuid.UUID, number string) (*model.Client, error) {
	normalized, err := normalizeHealthCard(number)
	if err != nil {
		return nil, err
	}

	var c model.Client
	err = s.db.WithContext(ctx).
		Where("clinic_id = ? AND health_card_hash = ?", clinicID, crypto.Hash(normalized)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("find by health card: %w", err)
	}
	return &c, nil
}

// attachHealthCard validates the number, rejects it when another client in
// the clinic already carries it, and sets the encrypted and hash fields on c.
func (s *clientService) attachHealthCard(ctx context.Context, clinicID uuid.UUID, c *model.Client, number string) error {
	normalized, err := normalizeHealthCard(number)
	if err != nil {
		return err
	}
	hash := crypto.Hash(normalized)

	var count int64
	err = s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND health_card_hash = ? AND id <> ?", clinicID, hash, c.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check health card: %w", err)
	}
	if count > 0 {
		return ErrDuplicateHealthCard
	}

	encrypted, err := s.box.Encrypt(normalized)
	if err != nil {
		return fmt.Errorf("encrypt health card: %w", err)
	}

	c.HealthCardEncrypted = encrypted
	c.HealthCardHash = hash
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// normalizeHealthCard strips spaces, uppercases and checks the RAMQ shape
// (four letters, eight digits).
func normalizeHealthCard(number string) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(number), " ", ""))
	if !reHealthCard.MatchString(normalized) {
		return "", ErrInvalidHealthCard
	}
	return normalized, nil
}

func normalizeLanguage(lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch lang {
	case "":
		return "fr", nil
	case "fr", "en":
		return lang, nil
	default:
		return "", ErrInvalidLanguage
	}
}

// nextFileNumber produces the next sequential dossier number for a clinic.
// offset skips past numbers that already lost a race.
func (s *clientService) nextFileNumber(ctx context.Context, clinicID uuid.UUID, offset int) (string, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ?", clinicID).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("count clients: %w", err)
	}
	return fmt.Sprintf("D-%05d", count+1+int64(offset)), nil
}
