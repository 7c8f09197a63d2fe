package model

import (
	"github.com/google/uuid"
)

// DocumentTemplate is a clinic-authored letter or form with Go template
// placeholders in the body (client, clinic and payer fields).
type DocumentTemplate struct {
	Base

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Category string `gorm:"size:50;index" json:"category"`
	Language string `gorm:"size:2;default:fr" json:"language"`
	Body     string `gorm:"type:text;not null" json:"body"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// GeneratedDocument records one rendering of a template for a client. The
// rendered bytes live in object storage under S3Key.
type GeneratedDocument struct {
	Base

	ClinicID   uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null" json:"template_id"`

	Name        string `gorm:"size:255;not null" json:"name"`
	S3Key       string `gorm:"size:512;not null" json:"-"`
	ContentType string `gorm:"size:100" json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`

	GeneratedByID uuid.UUID `gorm:"type:uuid" json:"generated_by_id"`
}
