package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.TimeSlot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestCreateSlotValidation(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()
	clinicID := uuid.New()
	clinicianID := uuid.New()

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"end before start", at(10, 0), at(9, 0), ErrInvalidTimeRange},
		{"zero length", at(10, 0), at(10, 0), ErrInvalidTimeRange},
		{"too short", at(10, 0), at(10, 10), ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
				ClinicianID: clinicianID, StartTime: tt.start, EndTime: tt.end,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSlotOverlap(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()
	clinicID := uuid.New()
	clinicianID := uuid.New()

	if _, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: clinicianID, StartTime: at(9, 0), EndTime: at(10, 0),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Contained, straddling and partial overlaps are all rejected.
	for _, tt := range []struct{ start, end time.Time }{
		{at(9, 15), at(9, 45)},
		{at(8, 30), at(10, 30)},
		{at(9, 30), at(10, 30)},
	} {
		_, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
			ClinicianID: clinicianID, StartTime: tt.start, EndTime: tt.end,
		})
		if !errors.Is(err, ErrOverlappingSlot) {
			t.Errorf("%v-%v: err = %v, want ErrOverlappingSlot", tt.start, tt.end, err)
		}
	}

	// Back-to-back is fine.
	if _, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: clinicianID, StartTime: at(10, 0), EndTime: at(11, 0),
	}); err != nil {
		t.Errorf("back-to-back: %v", err)
	}

	// Another clinician's calendar is independent.
	if _, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: uuid.New(), StartTime: at(9, 0), EndTime: at(10, 0),
	}); err != nil {
		t.Errorf("other clinician: %v", err)
	}
}

func TestGenerateSlots(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()
	clinicID := uuid.New()
	clinicianID := uuid.New()

	// An existing 10:00-11:00 slot punches a hole in the grid.
	if _, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: clinicianID, StartTime: at(10, 0), EndTime: at(11, 0),
	}); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	created, err := svc.GenerateSlots(ctx, clinicID, GenerateSlotsRequest{
		ClinicianID: clinicianID,
		From:        at(9, 0),
		To:          at(12, 0),
		SlotMinutes: 60,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("created %d slots, want 2", len(created))
	}
	if !created[0].StartTime.Equal(at(9, 0)) || !created[1].StartTime.Equal(at(11, 0)) {
		t.Errorf("slots at %v and %v, want 09:00 and 11:00", created[0].StartTime, created[1].StartTime)
	}
}

func TestListAvailableSlots(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()
	clinicID := uuid.New()
	clinicianID := uuid.New()

	first, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: clinicianID, StartTime: at(9, 0), EndTime: at(10, 0),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: clinicianID, StartTime: at(10, 0), EndTime: at(11, 0),
	}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.BlockSlot(ctx, clinicID, first.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	slots, err := svc.ListAvailableSlots(ctx, clinicID, nil, at(0, 0), at(23, 59))
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(slots) != 1 || !slots[0].StartTime.Equal(at(10, 0)) {
		t.Errorf("available = %d slots", len(slots))
	}

	if err := svc.UnblockSlot(ctx, clinicID, first.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	slots, err = svc.ListAvailableSlots(ctx, clinicID, &clinicianID, at(0, 0), at(23, 59))
	if err != nil {
		t.Fatalf("list after unblock: %v", err)
	}
	if len(slots) != 2 {
		t.Errorf("available after unblock = %d slots, want 2", len(slots))
	}
}

func TestUnblockRequiresBlocked(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()
	clinicID := uuid.New()

	slot, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: uuid.New(), StartTime: at(9, 0), EndTime: at(10, 0),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UnblockSlot(ctx, clinicID, slot.ID); !errors.Is(err, ErrSlotNotBlocked) {
		t.Errorf("err = %v, want ErrSlotNotBlocked", err)
	}
	if err := svc.UnblockSlot(ctx, clinicID, uuid.New()); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("missing slot: err = %v, want ErrSlotNotFound", err)
	}
}

func TestDeleteSlot(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()
	clinicID := uuid.New()

	slot, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: uuid.New(), StartTime: at(9, 0), EndTime: at(10, 0),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteSlot(ctx, clinicID, slot.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteSlot(ctx, clinicID, slot.ID); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("second delete: err = %v, want ErrSlotNotFound", err)
	}

	// Booked slots cannot be deleted out from under their appointment.
	booked, err := svc.CreateSlot(ctx, clinicID, CreateSlotRequest{
		ClinicianID: uuid.New(), StartTime: at(9, 0), EndTime: at(10, 0),
	})
	if err != nil {
		t.Fatalf("create booked: %v", err)
	}
	if err := db.Model(booked).Update("status", model.SlotStatusBooked).Error; err != nil {
		t.Fatalf("mark booked: %v", err)
	}
	if err := svc.DeleteSlot(ctx, clinicID, booked.ID); !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Errorf("delete booked: err = %v, want ErrSlotAlreadyBooked", err)
	}
}
