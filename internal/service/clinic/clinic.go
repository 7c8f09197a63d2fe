// Package clinic manages tenants and their staff. Membership changes are
// mirrored into casbin grouping policies so the RBAC middleware sees role
// changes without a separate sync step.
package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
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

type CreateClinicRequest struct {
	Name       string
	Slug       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

type UpdateClinicRequest struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	City       *string
	Province   *string
	PostalCode *string
	IsActive   *bool
}

type ListClinicsRequest struct {
	Page    int
	PerPage int
	Active  *bool
}

type AddMemberRequest struct {
	UserID uuid.UUID
	Role   model.MemberRole
	Title  string
}

type UpdateMemberRequest struct {
	Role     *model.MemberRole
	Title    *string
	IsActive *bool
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// CreateClinic creates the tenant and enrolls the creating user as its
	// owner, with the matching casbin role.
	CreateClinic(ctx context.Context, ownerUserID uuid.UUID, req CreateClinicRequest) (*model.Clinic, error)

	GetClinic(ctx context.Context, clinicID uuid.UUID) (*model.Clinic, error)
	GetBySlug(ctx context.Context, slug string) (*model.Clinic, error)
	ListClinics(ctx context.Context, req ListClinicsRequest) (*PaginatedResult[model.Clinic], error)
	UpdateClinic(ctx context.Context, clinicID uuid.UUID, req UpdateClinicRequest) (*model.Clinic, error)

	// UpdateSettings merges the given keys into the clinic settings JSON;
	// keys not present are left alone.
	UpdateSettings(ctx context.Context, clinicID uuid.UUID, settings map[string]any) (*model.Clinic, error)

	ListMembers(ctx context.Context, clinicID uuid.UUID, includeInactive bool) ([]model.ClinicMember, error)
	ListClinicians(ctx context.Context, clinicID uuid.UUID) ([]model.ClinicMember, error)
	AddMember(ctx context.Context, clinicID uuid.UUID, req AddMemberRequest) (*model.ClinicMember, error)
	UpdateMember(ctx context.Context, clinicID, memberID uuid.UUID, req UpdateMemberRequest) (*model.ClinicMember, error)
	RemoveMember(ctx context.Context, clinicID, memberID uuid.UUID) error
	IsMember(ctx context.Context, clinicID, userID uuid.UUID) (bool, error)
}

type clinicService struct {
	db   *gorm.DB
	auth authorize.IAuthorization
}

func New(db *gorm.DB, auth authorize.IAuthorization) Service {
	return &clinicService{db: db, auth: auth}
}

// ---------------------------------------------------------------------------
// Clinic CRUD
// ---------------------------------------------------------------------------

func (s *clinicService) CreateClinic(ctx context.Context, ownerUserID uuid.UUID, req CreateClinicRequest) (*model.Clinic, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrMissingName
	}
	if err := s.checkUser(ctx, ownerUserID); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(strings.ToLower(req.Slug))
	if slug == "" {
		slug = slugify(req.Name)
	}

	province := req.Province
	if province == "" {
		province = "QC"
	}

	clinic := &model.Clinic{
		Name:       req.Name,
		Slug:       slug,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		Province:   province,
		PostalCode: req.PostalCode,
		IsActive:   true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(clinic).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlugAlreadyExists
			}
			return fmt.Errorf("create clinic: %w", err)
		}

		member := &model.ClinicMember{
			ClinicID: clinic.ID,
			UserID:   ownerUserID,
			Role:     model.MemberRoleOwner,
			IsActive: true,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := authorize.AssignClinicOwnerRole(ctx, s.auth, ownerUserID.String(), clinic.ID.String()); err != nil {
		// RBAC can be repaired afterwards; the clinic row is the source of truth.
		slog.Warn("assign clinic owner role", "clinic_id", clinic.ID, "error", err)
	}

	return clinic, nil
}

func (s *clinicService) GetClinic(ctx context.Context, clinicID uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	err := s.db.WithContext(ctx).First(&clinic, "id = ?", clinicID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return &clinic, nil
}

func (s *clinicService) GetBySlug(ctx context.Context, slug string) (*model.Clinic, error) {
	var clinic model.Clinic
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", strings.ToLower(slug), true).
		First(&clinic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("get clinic by slug: %w", err)
	}
	return &clinic, nil
}

func (s *clinicService) ListClinics(ctx context.Context, req ListClinicsRequest) (*PaginatedResult[model.Clinic], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	offset := (req.Page - 1) * req.PerPage

	q := s.db.WithContext(ctx).Model(&model.Clinic{})
	if req.Active != nil {
		q = q.Where("is_active = ?", *req.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count clinics: %w", err)
	}

	var clinics []model.Clinic
	err := q.Order("name ASC").
		Offset(offset).
		Limit(req.PerPage).
		Find(&clinics).Error
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}

	totalPages := (int(total) + req.PerPage - 1) / req.PerPage
	return &PaginatedResult[model.Clinic]{
		Data:       clinics,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages,
	}, nil
}

func (s *clinicService) UpdateClinic(ctx context.Context, clinicID uuid.UUID, req UpdateClinicRequest) (*model.Clinic, error) {
	clinic, err := s.GetClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrMissingName
		}
		clinic.Name = *req.Name
	}
	if req.Email != nil {
		clinic.Email = *req.Email
	}
	if req.Phone != nil {
		clinic.Phone = *req.Phone
	}
	if req.Address != nil {
		clinic.Address = *req.Address
	}
	if req.City != nil {
		clinic.City = *req.City
	}
	if req.Province != nil {
		clinic.Province = *req.Province
	}
	if req.PostalCode != nil {
		clinic.PostalCode = *req.PostalCode
	}
	if req.IsActive != nil {
		clinic.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(clinic).Error; err != nil {
		return nil, fmt.Errorf("update clinic: %w", err)
	}
	return clinic, nil
}

func (s *clinicService) UpdateSettings(ctx context.Context, clinicID uuid.UUID, settings map[string]any) (*model.Clinic, error) {
	clinic, err := s.GetClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	if len(clinic.Settings) > 0 {
		if err := json.Unmarshal(clinic.Settings, &merged); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	for k, v := range settings {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	clinic.Settings = datatypes.JSON(raw)

	if err := s.db.WithContext(ctx).Save(clinic).Error; err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return clinic, nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func (s *clinicService) ListMembers(ctx context.Context, clinicID uuid.UUID, includeInactive bool) ([]model.ClinicMember, error) {
	q := s.db.WithContext(ctx).Where("clinic_id = ?", clinicID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var members []model.ClinicMember
	if err := q.Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *clinicService) ListClinicians(ctx context.Context, clinicID uuid.UUID) ([]model.ClinicMember, error) {
	var members []model.ClinicMember
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND role = ? AND is_active = ?", clinicID, model.MemberRoleClinician, true).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list clinicians: %w", err)
	}
	return members, nil
}

func (s *clinicService) AddMember(ctx context.Context, clinicID uuid.UUID, req AddMemberRequest) (*model.ClinicMember, error) {
	if !validRole(req.Role) {
		return nil, ErrInvalidRole
	}
	if _, err := s.GetClinic(ctx, clinicID); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	member := &model.ClinicMember{
		ClinicID: clinicID,
		UserID:   req.UserID,
		Role:     req.Role,
		Title:    req.Title,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("create member: %w", err)
	}

	s.grantRole(ctx, clinicID, req.UserID, req.Role)
	return member, nil
}

func (s *clinicService) UpdateMember(ctx context.Context, clinicID, memberID uuid.UUID, req UpdateMemberRequest) (*model.ClinicMember, error) {
	member, err := s.getMember(ctx, clinicID, memberID)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && *req.Role != member.Role {
		if !validRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		if member.Role == model.MemberRoleOwner {
			return nil, ErrCannotRemoveOwner
		}

		s.revokeRole(ctx, clinicID, member.UserID, member.Role)
		s.grantRole(ctx, clinicID, member.UserID, *req.Role)
		member.Role = *req.Role
	}
	if req.Title != nil {
		member.Title = *req.Title
	}
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(member).Error; err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

func (s *clinicService) RemoveMember(ctx context.Context, clinicID, memberID uuid.UUID) error {
	member, err := s.getMember(ctx, clinicID, memberID)
	if err != nil {
		return err
	}
	if member.Role == model.MemberRoleOwner {
		return ErrCannotRemoveOwner
	}

	s.revokeRole(ctx, clinicID, member.UserID, member.Role)

	if err := s.db.WithContext(ctx).Delete(member).Error; err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *clinicService) IsMember(ctx context.Context, clinicID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ClinicMember{}).
		Where("clinic_id = ? AND user_id = ? AND is_active = ?", clinicID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *clinicService) getMember(ctx context.Context, clinicID, memberID uuid.UUID) (*model.ClinicMember, error) {
	var member model.ClinicMember
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, memberID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &member, nil
}

func (s *clinicService) checkUser(ctx context.Context, userID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *clinicService) grantRole(ctx context.Context, clinicID, userID uuid.UUID, role model.MemberRole) {
	rbacRole, ok := authorize.ClinicMemberRoleToRBACRole[string(role)]
	if !ok {
		return
	}
	if err := authorize.AssignClinicRole(ctx, s.auth, userID.String(), clinicID.String(), rbacRole); err != nil {
		slog.Warn("assign clinic role", "clinic_id", clinicID, "user_id", userID, "role", role, "error", err)
	}
}

func (s *clinicService) revokeRole(ctx context.Context, clinicID, userID uuid.UUID, role model.MemberRole) {
	rbacRole, ok := authorize.ClinicMemberRoleToRBACRole[string(role)]
	if !ok {
		return
	}
	if err := authorize.RemoveClinicRole(ctx, s.auth, userID.String(), clinicID.String(), rbacRole); err != nil {
		slog.Warn("remove clinic role", "clinic_id", clinicID, "user_id", userID, "role", role, "error", err)
	}
}

func validRole(role model.MemberRole) bool {
	switch role {
	case model.MemberRoleOwner, model.MemberRoleAdmin, model.MemberRoleClinician,
		model.MemberRoleAssistant, model.MemberRoleBilling:
		return true
	}
	return false
}

var accentReplacer = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"ç", "c",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"œ", "oe",
)

// slugify turns a clinic name into a URL slug, transliterating the
// accents common in French names.
func slugify(name string) string {
	s := accentReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
