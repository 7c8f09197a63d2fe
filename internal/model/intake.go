package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IntakeStatus is the consultation-request workflow state.
type IntakeStatus string

const (
	IntakeStatusNew       IntakeStatus = "new"
	IntakeStatusInReview  IntakeStatus = "in_review"
	IntakeStatusScheduled IntakeStatus = "scheduled"
	IntakeStatusConverted IntakeStatus = "converted"
	IntakeStatusDeclined  IntakeStatus = "declined"
)

// ConsultationRequest is an inbound request for services, usually from the
// public intake form. Staff triage it, optionally schedule a first call,
// then either convert it into a client record or decline it.
type ConsultationRequest struct {
	Base

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`

	// ReferenceCode is the short code quoted back to the requester.
	ReferenceCode string `gorm:"size:32;uniqueIndex;not null" json:"reference_code"`

	FirstName         string `gorm:"size:100;not null" json:"first_name"`
	LastName          string `gorm:"size:100;not null" json:"last_name"`
	Email             string `gorm:"size:255" json:"email"`
	Phone             string `gorm:"size:32" json:"phone"`
	PreferredLanguage string `gorm:"size:2;default:fr" json:"preferred_language"`

	Reason       string `gorm:"type:text" json:"reason"`
	Availability string `gorm:"size:255" json:"availability"`

	// FormPayload keeps the raw submitted form for audit and later review.
	FormPayload datatypes.JSON `gorm:"type:jsonb" json:"form_payload,omitempty"`

	Status           IntakeStatus `gorm:"size:20;default:new;index" json:"status"`
	AssignedMemberID *uuid.UUID   `gorm:"type:uuid;index" json:"assigned_member_id,omitempty"`
	TriageNotes      string       `gorm:"type:text" json:"triage_notes"`
	DeclineReason    string       `gorm:"size:255" json:"decline_reason,omitempty"`

	// ClientID is set when the request is converted.
	ClientID    *uuid.UUID `gorm:"type:uuid" json:"client_id,omitempty"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
}
