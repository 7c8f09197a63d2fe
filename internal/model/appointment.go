package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusBlocked   SlotStatus = "blocked"
)

// TimeSlot is a bookable window in a clinician's schedule.
type TimeSlot struct {
	Base

	ClinicID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"clinic_id"`
	ClinicianID uuid.UUID  `gorm:"type:uuid;not null;index" json:"clinician_id"`
	StartTime   time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time  `gorm:"not null" json:"end_time"`
	Status      SlotStatus `gorm:"size:20;default:available;index" json:"status"`
}

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Appointment is a booked session. When a payer is attached,
// SequenceNumber is the client's position in that payer's coverage
// (1-based) and the billed split is denormalized onto the row after
// completion.
type Appointment struct {
	Base

	ClinicID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"clinic_id"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	ClinicianID uuid.UUID  `gorm:"type:uuid;not null;index" json:"clinician_id"`
	SlotID      *uuid.UUID `gorm:"type:uuid" json:"slot_id,omitempty"`

	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	ServiceName string `gorm:"size:100" json:"service_name"`
	FeeCents    int64  `json:"fee_cents"`

	Status AppointmentStatus `gorm:"size:20;default:scheduled;index" json:"status"`

	PayerID          *uuid.UUID `gorm:"type:uuid;index" json:"payer_id,omitempty"`
	SequenceNumber   int        `json:"sequence_number,omitempty"`
	PayerAmountCents int64      `json:"payer_amount_cents"`
	ClientAmountCents int64     `json:"client_amount_cents"`

	Notes string `gorm:"type:text" json:"notes"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
