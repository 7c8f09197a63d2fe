package intake

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/client"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
)

var testBox, _ = crypto.NewBox([]byte("0123456789abcdef0123456789abcdef"))

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Client{}, &model.ConsultationRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return New(db, client.New(db, testBox), nil), db
}

func submit(t *testing.T, svc Service, clinicID uuid.UUID) *model.ConsultationRequest {
	t.Helper()

	intake, err := svc.Submit(context.Background(), clinicID, SubmitRequest{
		FirstName: "Marie",
		LastName:  "Tremblay",
		Email:     "marie@example.com",
		Phone:     "514-555-1234",
		Reason:    "Anxiété au travail",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return intake
}

func TestSubmitAssignsReferenceCode(t *testing.T) {
	svc, _ := newTestService(t)
	intake := submit(t, svc, uuid.New())

	if !strings.HasPrefix(intake.ReferenceCode, "OV-") {
		t.Errorf("reference code = %q, want OV- prefix", intake.ReferenceCode)
	}
	if len(intake.ReferenceCode) != 11 {
		t.Errorf("reference code length = %d, want 11", len(intake.ReferenceCode))
	}
	if intake.Status != model.IntakeStatusNew {
		t.Errorf("status = %q, want new", intake.Status)
	}
	if intake.PreferredLanguage != "fr" {
		t.Errorf("language = %q, want fr", intake.PreferredLanguage)
	}
	if intake.Phone != "+15145551234" {
		t.Errorf("phone = %q, want +15145551234", intake.Phone)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr error
	}{
		{"missing name", SubmitRequest{Email: "a@b.com"}, ErrMissingName},
		{"no contact", SubmitRequest{FirstName: "Marie", LastName: "Tremblay"}, ErrMissingContact},
		{"bad phone", SubmitRequest{FirstName: "Marie", LastName: "Tremblay", Phone: "12"}, ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, clinicID, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitKeepsFormPayload(t *testing.T) {
	svc, db := newTestService(t)

	intake, err := svc.Submit(context.Background(), uuid.New(), SubmitRequest{
		FirstName: "Marie",
		LastName:  "Tremblay",
		Email:     "marie@example.com",
		FormPayload: map[string]any{
			"insurance":      "pae",
			"preferred_days": []string{"lundi", "mercredi"},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var stored model.ConsultationRequest
	if err := db.First(&stored, "id = ?", intake.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(stored.FormPayload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["insurance"] != "pae" {
		t.Errorf("payload insurance = %v", payload["insurance"])
	}
}

func TestGetByReference(t *testing.T) {
	svc, _ := newTestService(t)
	intake := submit(t, svc, uuid.New())

	got, err := svc.GetByReference(context.Background(), strings.ToLower(intake.ReferenceCode))
	if err != nil {
		t.Fatalf("get by reference: %v", err)
	}
	if got.ID != intake.ID {
		t.Errorf("got %s, want %s", got.ID, intake.ID)
	}

	if _, err := svc.GetByReference(context.Background(), "OV-MISSING1"); !errors.Is(err, ErrIntakeNotFound) {
		t.Errorf("err = %v, want ErrIntakeNotFound", err)
	}
}

func TestAssignAdvancesNewToInReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	intake := submit(t, svc, clinicID)

	memberID := uuid.New()
	got, err := svc.Assign(ctx, clinicID, intake.ID, memberID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.AssignedMemberID == nil || *got.AssignedMemberID != memberID {
		t.Errorf("assigned member = %v, want %s", got.AssignedMemberID, memberID)
	}
	if got.Status != model.IntakeStatusInReview {
		t.Errorf("status = %q, want in_review", got.Status)
	}

	// Re-assigning later does not regress the status.
	if _, err := svc.MarkScheduled(ctx, clinicID, intake.ID); err != nil {
		t.Fatalf("mark scheduled: %v", err)
	}
	got, err = svc.Assign(ctx, clinicID, intake.ID, uuid.New())
	if err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if got.Status != model.IntakeStatusScheduled {
		t.Errorf("status after re-assign = %q, want scheduled", got.Status)
	}
}

func TestConvertCreatesLinkedClient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	intake := submit(t, svc, clinicID)

	newClient, err := svc.Convert(ctx, clinicID, intake.ID, ConvertRequest{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if newClient.FirstName != "Marie" || newClient.LastName != "Tremblay" {
		t.Errorf("client name = %s %s", newClient.FirstName, newClient.LastName)
	}
	if newClient.Phone != "+15145551234" {
		t.Errorf("client phone = %q", newClient.Phone)
	}
	if newClient.ChiefComplaint != "Anxiété au travail" {
		t.Errorf("chief complaint = %q", newClient.ChiefComplaint)
	}
	if newClient.FileNumber != "D-00001" {
		t.Errorf("file number = %q, want D-00001", newClient.FileNumber)
	}
	if newClient.IntakeRequestID == nil || *newClient.IntakeRequestID != intake.ID {
		t.Errorf("client intake link = %v, want %s", newClient.IntakeRequestID, intake.ID)
	}

	closed, err := svc.GetByID(ctx, clinicID, intake.ID)
	if err != nil {
		t.Fatalf("reload intake: %v", err)
	}
	if closed.Status != model.IntakeStatusConverted {
		t.Errorf("status = %q, want converted", closed.Status)
	}
	if closed.ClientID == nil || *closed.ClientID != newClient.ID {
		t.Errorf("intake client link = %v, want %s", closed.ClientID, newClient.ID)
	}
	if closed.ConvertedAt == nil {
		t.Error("converted_at not set")
	}

	// Terminal: no further transitions.
	if _, err := svc.StartReview(ctx, clinicID, intake.ID); !errors.Is(err, ErrIntakeClosed) {
		t.Errorf("start review after convert: err = %v, want ErrIntakeClosed", err)
	}
	if _, err := svc.Decline(ctx, clinicID, intake.ID, "duplicate"); !errors.Is(err, ErrIntakeClosed) {
		t.Errorf("decline after convert: err = %v, want ErrIntakeClosed", err)
	}
	if _, err := svc.Convert(ctx, clinicID, intake.ID, ConvertRequest{}); !errors.Is(err, ErrIntakeClosed) {
		t.Errorf("second convert: err = %v, want ErrIntakeClosed", err)
	}
}

func TestDecline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	intake := submit(t, svc, clinicID)

	if _, err := svc.Decline(ctx, clinicID, intake.ID, "  "); !errors.Is(err, ErrMissingReason) {
		t.Fatalf("blank reason: err = %v, want ErrMissingReason", err)
	}

	got, err := svc.Decline(ctx, clinicID, intake.ID, "Hors territoire desservi")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if got.Status != model.IntakeStatusDeclined {
		t.Errorf("status = %q, want declined", got.Status)
	}
	if got.DeclineReason != "Hors territoire desservi" {
		t.Errorf("reason = %q", got.DeclineReason)
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()

	first := submit(t, svc, clinicID)
	submit(t, svc, clinicID)
	submit(t, svc, uuid.New()) // other clinic

	memberID := uuid.New()
	if _, err := svc.Assign(ctx, clinicID, first.ID, memberID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	res, err := svc.List(ctx, clinicID, ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}

	status := model.IntakeStatusNew
	res, err = svc.List(ctx, clinicID, ListRequest{Status: &status})
	if err != nil {
		t.Fatalf("list new: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("new total = %d, want 1", res.Total)
	}

	res, err = svc.List(ctx, clinicID, ListRequest{AssignedMemberID: &memberID})
	if err != nil {
		t.Fatalf("list assigned: %v", err)
	}
	if res.Total != 1 || res.Data[0].ID != first.ID {
		t.Errorf("assigned total = %d", res.Total)
	}
}
