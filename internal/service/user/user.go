// Package user manages staff account profiles. Authentication lives in the
// auth service; this package covers reads, self-service updates and account
// status switches.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/util/password"
	"github.com/oveliahealth/ovelia_backend/pkg/util/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type UpdateProfileRequest struct {
	FirstName *string
	LastName  *string
	Phone     *string // empty string clears the number
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*model.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error

	// Clinics lists the active clinics where the user has an active
	// membership, for the clinic switcher.
	Clinics(ctx context.Context, userID uuid.UUID) ([]model.Clinic, error)

	Suspend(ctx context.Context, userID uuid.UUID) error
	Reactivate(ctx context.Context, userID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type userService struct {
	db *gorm.DB
}

func New(db *gorm.DB) Service {
	return &userService{db: db}
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*model.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		p := strings.TrimSpace(*req.Phone)
		if p == "" {
			u.Phone = ""
		} else {
			normalized, err := phone.NormalizeCA(p)
			if err != nil {
				return nil, ErrInvalidPhone
			}
			u.Phone = normalized
		}
	}

	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := password.Verify(u.PasswordHash, currentPassword); err != nil {
		return ErrWrongPassword
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *userService) Clinics(ctx context.Context, userID uuid.UUID) ([]model.Clinic, error) {
	var clinics []model.Clinic
	err := s.db.WithContext(ctx).
		Joins("JOIN clinic_members ON clinic_members.clinic_id = clinics.id").
		Where("clinic_members.user_id = ? AND clinic_members.is_active = ?", userID, true).
		Where("clinics.is_active = ?", true).
		Order("clinics.name ASC").
		Find(&clinics).Error
	if err != nil {
		return nil, fmt.Errorf("list user clinics: %w", err)
	}
	return clinics, nil
}

func (s *userService) Suspend(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusSuspended)
}

func (s *userService) Reactivate(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusActive)
}

func (s *userService) setStatus(ctx context.Context, userID uuid.UUID, status model.UserStatus) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
