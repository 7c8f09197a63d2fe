package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationIntakeReceived  NotificationKind = "intake_received"
	NotificationIntakeAssigned  NotificationKind = "intake_assigned"
	NotificationPayerBudgetLow  NotificationKind = "payer_budget_low"
	NotificationDocumentReady   NotificationKind = "document_ready"
	NotificationAppointmentNote NotificationKind = "appointment_note"
)

// Notification is an in-app notification row. Email/SMS fanout happens in
// the NATS workers; this row is the durable record regardless of channel.
type Notification struct {
	Base

	UserID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ClinicID *uuid.UUID `gorm:"type:uuid;index" json:"clinic_id,omitempty"`

	Kind  NotificationKind `gorm:"size:50;not null" json:"kind"`
	Title string           `gorm:"size:255;not null" json:"title"`
	Body  string           `gorm:"type:text" json:"body"`

	Payload datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
