package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/internal/coverage"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
)

var testBox, _ = crypto.NewBox([]byte("0123456789abcdef0123456789abcdef"))

func newTestService(t *testing.T) (Service, payer.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Client{}, &model.ExternalPayer{}, &model.TimeSlot{}, &model.Appointment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	payers := payer.New(db, testBox, nil)
	return New(db, payers, nil), payers, db
}

func seedClient(t *testing.T, db *gorm.DB, clinicID uuid.UUID) *model.Client {
	t.Helper()

	c := &model.Client{
		ClinicID:   clinicID,
		FileNumber: "F-" + uuid.NewString()[:8],
		FirstName:  "Marc",
		LastName:   "Bélanger",
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedSlot(t *testing.T, db *gorm.DB, clinicID, clinicianID uuid.UUID, start time.Time) *model.TimeSlot {
	t.Helper()

	slot := &model.TimeSlot{
		ClinicID:    clinicID,
		ClinicianID: clinicianID,
		StartTime:   start,
		EndTime:     start.Add(50 * time.Minute),
		Status:      model.SlotStatusAvailable,
	}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func at(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
}

func TestBookIntoSlot(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	clinicianID := uuid.New()
	client := seedClient(t, db, clinicID)
	slot := seedSlot(t, db, clinicID, clinicianID, at(9))

	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID:    client.ID,
		SlotID:      &slot.ID,
		ServiceName: "Psychothérapie individuelle",
		FeeCents:    12000,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if appt.ClinicianID != clinicianID {
		t.Errorf("clinician = %s, want slot's clinician", appt.ClinicianID)
	}
	if !appt.StartTime.Equal(slot.StartTime) || !appt.EndTime.Equal(slot.EndTime) {
		t.Errorf("times %v-%v, want copied from slot", appt.StartTime, appt.EndTime)
	}
	if appt.Status != model.AppointmentStatusScheduled {
		t.Errorf("status = %s, want scheduled", appt.Status)
	}

	var reloaded model.TimeSlot
	if err := db.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.Status != model.SlotStatusBooked {
		t.Errorf("slot status = %s, want booked", reloaded.Status)
	}

	// The slot is taken now.
	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID,
		SlotID:   &slot.ID,
		FeeCents: 12000,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("double book: err = %v, want ErrSlotUnavailable", err)
	}

	missing := uuid.New()
	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID,
		SlotID:   &missing,
		FeeCents: 12000,
	})
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("missing slot: err = %v, want ErrSlotNotFound", err)
	}
}

func TestBookDirectEntry(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)

	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID:    client.ID,
		ClinicianID: uuid.New(),
		StartTime:   at(14),
		EndTime:     at(15),
		ServiceName: "Suivi téléphonique",
		FeeCents:    8000,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.SlotID != nil {
		t.Errorf("slot id = %v, want nil", appt.SlotID)
	}

	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID:    client.ID,
		ClinicianID: uuid.New(),
		StartTime:   at(15),
		EndTime:     at(14),
		FeeCents:    8000,
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("inverted range: err = %v, want ErrInvalidTimeRange", err)
	}

	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: -100,
	})
	if !errors.Is(err, ErrInvalidFee) {
		t.Errorf("negative fee: err = %v, want ErrInvalidFee", err)
	}

	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: uuid.New(), ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: 8000,
	})
	if !errors.Is(err, ErrClientNotFound) {
		t.Errorf("unknown client: err = %v, want ErrClientNotFound", err)
	}
}

func TestBookPayerGuards(t *testing.T) {
	svc, payers, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)
	other := seedClient(t, db, clinicID)

	p, err := payers.CreateIVAC(ctx, clinicID, payer.CreateIVACRequest{
		ClientID:   other.ID,
		FileNumber: "IVAC-777",
	})
	if err != nil {
		t.Fatalf("create ivac: %v", err)
	}

	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: 12000,
		PayerID:  &p.ID,
	})
	if !errors.Is(err, ErrPayerMismatch) {
		t.Errorf("other client's payer: err = %v, want ErrPayerMismatch", err)
	}

	if err := payers.Deactivate(ctx, clinicID, p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = svc.Book(ctx, clinicID, BookRequest{
		ClientID: other.ID, ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: 12000,
		PayerID:  &p.ID,
	})
	if !errors.Is(err, payer.ErrPayerInactive) {
		t.Errorf("inactive payer: err = %v, want ErrPayerInactive", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)
	slot := seedSlot(t, db, clinicID, uuid.New(), at(9))

	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, SlotID: &slot.ID, FeeCents: 12000,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := svc.Cancel(ctx, clinicID, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	reloaded, err := svc.GetByID(ctx, clinicID, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != model.AppointmentStatusCancelled || reloaded.CancelledAt == nil {
		t.Errorf("status = %s, cancelled_at = %v", reloaded.Status, reloaded.CancelledAt)
	}

	var freed model.TimeSlot
	if err := db.First(&freed, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if freed.Status != model.SlotStatusAvailable {
		t.Errorf("slot status = %s, want available again", freed.Status)
	}

	// Cancelling twice is a no-op.
	if err := svc.Cancel(ctx, clinicID, appt.ID); err != nil {
		t.Errorf("second cancel: %v", err)
	}
}

func TestCompleteWithoutPayer(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)

	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: 12000,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	done, err := svc.Complete(ctx, clinicID, appt.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.AppointmentStatusCompleted || done.CompletedAt == nil {
		t.Errorf("status = %s, completed_at = %v", done.Status, done.CompletedAt)
	}
	if done.SequenceNumber != 0 || done.PayerAmountCents != 0 {
		t.Errorf("billing fields set without payer: seq %d payer %d", done.SequenceNumber, done.PayerAmountCents)
	}

	if _, err := svc.Complete(ctx, clinicID, appt.ID); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("second complete: err = %v, want ErrNotScheduled", err)
	}
	if err := svc.Cancel(ctx, clinicID, appt.ID); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("cancel completed: err = %v, want ErrNotScheduled", err)
	}
}

func TestCompleteBillsPayer(t *testing.T) {
	svc, payers, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)

	p, err := payers.CreatePAE(ctx, clinicID, payer.CreatePAERequest{
		ClientID:             client.ID,
		FileNumber:           "PAE-12345",
		ProviderName:         "Telus Santé",
		EmployerName:         "Hydro-Québec",
		MaxAmountCents:       100000,
		ExpiryDate:           time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Rules: []coverage.Rule{
			{Kind: coverage.RuleFreeAppointments, Order: 1, Count: 2},
			{Kind: coverage.RuleSharedCost, Order: 2, FromAppointment: 3, PAEPercent: 50},
		},
	})
	if err != nil {
		t.Fatalf("create pae: %v", err)
	}

	wantPayer := []int64{12000, 12000, 6000}
	for i, want := range wantPayer {
		appt, err := svc.Book(ctx, clinicID, BookRequest{
			ClientID: client.ID, ClinicianID: uuid.New(),
			StartTime: at(9 + i), EndTime: at(10 + i),
			ServiceName: "Psychothérapie individuelle",
			FeeCents:    12000,
			PayerID:     &p.ID,
		})
		if err != nil {
			t.Fatalf("book %d: %v", i+1, err)
		}

		done, err := svc.Complete(ctx, clinicID, appt.ID)
		if err != nil {
			t.Fatalf("complete %d: %v", i+1, err)
		}
		if done.SequenceNumber != i+1 {
			t.Errorf("appointment %d: sequence = %d", i+1, done.SequenceNumber)
		}
		if done.PayerAmountCents != want {
			t.Errorf("appointment %d: payer cents = %d, want %d", i+1, done.PayerAmountCents, want)
		}
		if done.ClientAmountCents != 12000-want {
			t.Errorf("appointment %d: client cents = %d, want %d", i+1, done.ClientAmountCents, 12000-want)
		}
	}

	var reloaded model.ExternalPayer
	if err := db.First(&reloaded, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload payer: %v", err)
	}
	if reloaded.AppointmentsUsed != 3 {
		t.Errorf("appointments used = %d, want 3", reloaded.AppointmentsUsed)
	}
	if reloaded.AmountUsedCents != 30000 {
		t.Errorf("amount used = %d, want 30000", reloaded.AmountUsedCents)
	}
}

func TestCompleteBillingFailureReleasesClaim(t *testing.T) {
	svc, payers, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)

	expiry := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	p, err := payers.CreatePAE(ctx, clinicID, payer.CreatePAERequest{
		ClientID:             client.ID,
		FileNumber:           "PAE-12345",
		ProviderName:         "Telus Santé",
		EmployerName:         "Hydro-Québec",
		ReimbursementPercent: 100,
		ExpiryDate:           expiry,
	})
	if err != nil {
		t.Fatalf("create pae: %v", err)
	}

	// Session date is past the coverage expiry, so billing fails.
	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, ClinicianID: uuid.New(),
		StartTime: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
		FeeCents:  12000,
		PayerID:   &p.ID,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := svc.Complete(ctx, clinicID, appt.ID); !errors.Is(err, payer.ErrPayerExpired) {
		t.Fatalf("complete: err = %v, want ErrPayerExpired", err)
	}

	reloaded, err := svc.GetByID(ctx, clinicID, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != model.AppointmentStatusScheduled || reloaded.CompletedAt != nil {
		t.Errorf("status = %s, completed_at = %v, want claim released", reloaded.Status, reloaded.CompletedAt)
	}

	var pr model.ExternalPayer
	if err := db.First(&pr, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload payer: %v", err)
	}
	if pr.AppointmentsUsed != 0 {
		t.Errorf("appointments used = %d, want 0", pr.AppointmentsUsed)
	}
}

func TestMarkNoShow(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)

	appt, err := svc.Book(ctx, clinicID, BookRequest{
		ClientID: client.ID, ClinicianID: uuid.New(),
		StartTime: at(14), EndTime: at(15),
		FeeCents: 12000,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := svc.MarkNoShow(ctx, clinicID, appt.ID); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if err := svc.MarkNoShow(ctx, clinicID, appt.ID); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("second no-show: err = %v, want ErrNotScheduled", err)
	}
	if err := svc.MarkNoShow(ctx, clinicID, uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("missing: err = %v, want ErrAppointmentNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	clinicID := uuid.New()
	client := seedClient(t, db, clinicID)
	clinicianA := uuid.New()
	clinicianB := uuid.New()

	for i, clinician := range []uuid.UUID{clinicianA, clinicianA, clinicianB} {
		if _, err := svc.Book(ctx, clinicID, BookRequest{
			ClientID: client.ID, ClinicianID: clinician,
			StartTime: at(9 + i), EndTime: at(10 + i),
			FeeCents: 12000,
		}); err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
	}

	res, err := svc.List(ctx, clinicID, ListRequest{ClinicianID: &clinicianA})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("clinician filter: total = %d, want 2", res.Total)
	}

	from := at(10)
	res, err = svc.List(ctx, clinicID, ListRequest{From: &from})
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("from filter: total = %d, want 2", res.Total)
	}

	status := model.AppointmentStatusScheduled
	res, err = svc.List(ctx, clinicID, ListRequest{Status: &status, Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if len(res.Data) != 2 || res.Total != 3 || res.TotalPages != 2 {
		t.Errorf("paged: len %d total %d pages %d", len(res.Data), res.Total, res.TotalPages)
	}

	// Another clinic sees nothing.
	res, err = svc.List(ctx, uuid.New(), ListRequest{})
	if err != nil {
		t.Fatalf("list other clinic: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("other clinic: total = %d, want 0", res.Total)
	}
}
