package model

import (
	"github.com/google/uuid"
)

// ClientFile is an uploaded attachment on a client record (referrals,
// consent forms, external reports). Bytes live in object storage.
type ClientFile struct {
	Base

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	FileName    string `gorm:"size:255;not null" json:"file_name"`
	S3Key       string `gorm:"size:512;not null" json:"-"`
	ContentType string `gorm:"size:100" json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Category    string `gorm:"size:50;index" json:"category"`

	UploadedByID uuid.UUID `gorm:"type:uuid" json:"uploaded_by_id"`
}
