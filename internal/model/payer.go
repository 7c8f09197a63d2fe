package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PayerKind discriminates the external payer union.
type PayerKind string

const (
	// PayerIVAC is the public victims'-assistance program. Reimbursement
	// is a fixed program-wide rate, never configured per payer.
	PayerIVAC PayerKind = "ivac"

	// PayerPAE is an employee-assistance program with a configurable
	// reimbursement percentage, budget ceiling and coverage rule chain.
	PayerPAE PayerKind = "pae"
)

// ExternalPayer is a third-party coverage record attached to a client.
// Both payer kinds share the row; kind-specific columns are null for the
// other kind. At most one active payer per kind per client is enforced by
// the payer service.
type ExternalPayer struct {
	Base

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Kind     PayerKind `gorm:"size:10;not null;index" json:"kind"`

	// FileNumberEncrypted is the program file number, AES-256-GCM
	// encrypted at rest.
	FileNumberEncrypted string `gorm:"column:file_number;size:512;not null" json:"-"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// IVAC fields.
	IncidentDate *time.Time `json:"incident_date,omitempty"`

	// ExpiryDate is optional for IVAC and required for PAE.
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	// PAE fields.
	ProviderName         string `gorm:"size:255" json:"provider_name,omitempty"`
	EmployerName         string `gorm:"size:255" json:"employer_name,omitempty"`
	ReimbursementPercent int    `json:"reimbursement_percent,omitempty"`
	MaxAmountCents       int64  `json:"max_amount_cents,omitempty"`

	// Rules is the ordered coverage rule chain ([]coverage.Rule as JSONB).
	// Replaced whole on every edit, never patched in place.
	Rules datatypes.JSON `gorm:"type:jsonb" json:"rules,omitempty"`

	// Usage counters, incremented after each billed appointment.
	AppointmentsUsed int   `gorm:"default:0" json:"appointments_used"`
	AmountUsedCents  int64 `gorm:"default:0" json:"amount_used_cents"`
}
