package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusArchived ClientStatus = "archived"
)

// Client is a clinic-scoped patient record. Clients are archived rather
// than deleted so relations, payers and documents keep a valid anchor.
type Client struct {
	Base

	ClinicID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_client_file_number" json:"clinic_id"`
	FileNumber string    `gorm:"size:32;not null;uniqueIndex:ux_client_file_number" json:"file_number"`

	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"size:100;not null" json:"last_name"`
	Email       string     `gorm:"size:255" json:"email"`
	Phone       string     `gorm:"size:32" json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Language    string     `gorm:"size:2;default:fr" json:"language"`

	Address    string `gorm:"size:255" json:"address"`
	City       string `gorm:"size:100" json:"city"`
	PostalCode string `gorm:"size:10" json:"postal_code"`

	// HealthCardEncrypted holds the RAMQ number, AES-256-GCM encrypted.
	// HealthCardHash is its SHA-256 digest, kept for duplicate lookups.
	HealthCardEncrypted string `gorm:"column:health_card;size:512" json:"-"`
	HealthCardHash      string `gorm:"column:health_card_hash;size:64;index" json:"-"`

	Status         ClientStatus `gorm:"size:20;default:active;index" json:"status"`
	ReferralSource string       `gorm:"size:255" json:"referral_source"`
	ChiefComplaint string       `gorm:"type:text" json:"chief_complaint"`
	Notes          string       `gorm:"type:text" json:"notes"`

	// IntakeRequestID points back at the consultation request this client
	// was converted from, when applicable.
	IntakeRequestID *uuid.UUID `gorm:"type:uuid" json:"intake_request_id,omitempty"`

	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
