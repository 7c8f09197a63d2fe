package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/util/password"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Clinic{}, &model.ClinicMember{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db), db
}

func seedUser(t *testing.T, db *gorm.DB, pass string) *model.User {
	t.Helper()

	hash, err := password.Hash(pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{
		Email:        uuid.NewString()[:8] + "@ovelia.test",
		PasswordHash: hash,
		FirstName:    "Isabelle",
		LastName:     "Roy",
		Status:       model.UserStatusActive,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestGetByEmail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u := seedUser(t, db, "mot-de-passe-1")

	got, err := svc.GetByEmail(ctx, "  "+u.Email+"  ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID {
		t.Error("wrong user")
	}

	if _, err := svc.GetByEmail(ctx, "absent@ovelia.test"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if _, err := svc.GetByID(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u := seedUser(t, db, "mot-de-passe-1")

	first := "Geneviève"
	phone := "438-555-0144"
	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{
		FirstName: &first,
		Phone:     &phone,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FirstName != "Geneviève" {
		t.Errorf("first name = %q", updated.FirstName)
	}
	if updated.LastName != "Roy" {
		t.Errorf("last name = %q, untouched field changed", updated.LastName)
	}
	if updated.Phone != "+14385550144" {
		t.Errorf("phone = %q, want E.164", updated.Phone)
	}

	bad := "123"
	if _, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{Phone: &bad}); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("bad phone: err = %v, want ErrInvalidPhone", err)
	}

	empty := ""
	updated, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{Phone: &empty})
	if err != nil {
		t.Fatalf("clear phone: %v", err)
	}
	if updated.Phone != "" {
		t.Errorf("phone = %q, want cleared", updated.Phone)
	}
}

func TestChangePassword(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u := seedUser(t, db, "ancien-mot-9")

	if err := svc.ChangePassword(ctx, u.ID, "ancien-mot-9", "court"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short: err = %v, want ErrPasswordTooShort", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "pas-le-bon", "nouveau-mot-10"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong current: err = %v, want ErrWrongPassword", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "ancien-mot-9", "nouveau-mot-10"); err != nil {
		t.Fatalf("change: %v", err)
	}

	reloaded, err := svc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := password.Verify(reloaded.PasswordHash, "nouveau-mot-10"); err != nil {
		t.Error("new password does not verify")
	}
	if err := password.Verify(reloaded.PasswordHash, "ancien-mot-9"); err == nil {
		t.Error("old password still verifies")
	}
}

func TestClinics(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u := seedUser(t, db, "mot-de-passe-1")

	mkClinic := func(name string, active bool) *model.Clinic {
		c := &model.Clinic{Name: name, Slug: uuid.NewString()[:8], IsActive: active}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed clinic: %v", err)
		}
		return c
	}
	mkMember := func(c *model.Clinic, active bool) {
		m := &model.ClinicMember{ClinicID: c.ID, UserID: u.ID, Role: model.MemberRoleClinician, IsActive: active}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}

	mkMember(mkClinic("Clinique B", true), true)
	mkMember(mkClinic("Clinique A", true), true)
	mkMember(mkClinic("Clinique fermée", false), true)
	mkMember(mkClinic("Clinique quittée", true), false)

	clinics, err := svc.Clinics(ctx, u.ID)
	if err != nil {
		t.Fatalf("clinics: %v", err)
	}
	if len(clinics) != 2 {
		t.Fatalf("got %d clinics, want 2", len(clinics))
	}
	if clinics[0].Name != "Clinique A" || clinics[1].Name != "Clinique B" {
		t.Errorf("order = %q, %q", clinics[0].Name, clinics[1].Name)
	}
}

func TestSuspendReactivate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	u := seedUser(t, db, "mot-de-passe-1")

	if err := svc.Suspend(ctx, u.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	got, err := svc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != model.UserStatusSuspended {
		t.Errorf("status = %q", got.Status)
	}

	if err := svc.Reactivate(ctx, u.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, err = svc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != model.UserStatusActive {
		t.Errorf("status = %q", got.Status)
	}

	if err := svc.Suspend(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown: err = %v, want ErrUserNotFound", err)
	}
}
