package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Clinic is the tenant root. Every domain row carries the owning clinic's
// ID and queries are always scoped to it.
type Clinic struct {
	Base

	Name       string `gorm:"size:255;not null" json:"name"`
	Slug       string `gorm:"size:100;uniqueIndex" json:"slug"`
	Email      string `gorm:"size:255" json:"email"`
	Phone      string `gorm:"size:32" json:"phone"`
	Address    string `gorm:"size:255" json:"address"`
	City       string `gorm:"size:100" json:"city"`
	Province   string `gorm:"size:2;default:QC" json:"province"`
	PostalCode string `gorm:"size:10" json:"postal_code"`
	IsActive   bool   `gorm:"default:true;index" json:"is_active"`

	Settings datatypes.JSON `gorm:"type:jsonb" json:"settings,omitempty"`
}

type MemberRole string

const (
	MemberRoleOwner     MemberRole = "owner"
	MemberRoleAdmin     MemberRole = "admin"
	MemberRoleClinician MemberRole = "clinician"
	MemberRoleAssistant MemberRole = "assistant"
	MemberRoleBilling   MemberRole = "billing"
)

// ClinicMember links a user to a clinic with a role. The role string is
// mirrored into casbin grouping policies on membership changes.
type ClinicMember struct {
	Base

	ClinicID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_clinic_member" json:"clinic_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_clinic_member;index" json:"user_id"`
	Role     MemberRole `gorm:"size:20;not null" json:"role"`
	Title    string     `gorm:"size:100" json:"title"`
	IsActive bool       `gorm:"default:true" json:"is_active"`
}
