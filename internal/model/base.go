// Package model defines the persistence models for all Ovelia entities.
// Models are plain GORM structs; validation and business rules live in the
// service layer, the database only backs them with indexes and uniqueness.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the shared primary key and timestamps. UUIDv7 keys keep
// physical ordering close to insertion order, which keeps paginated
// listings index-friendly.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUIDv7 primary key when the caller did not set one.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}
