package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a staff account. Clinic membership and roles are modeled by
// ClinicMember; a user may belong to several clinics.
type User struct {
	Base

	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone        string     `gorm:"size:32;index" json:"phone"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	FirstName    string     `gorm:"size:100" json:"first_name"`
	LastName     string     `gorm:"size:100" json:"last_name"`
	Status       UserStatus `gorm:"size:20;default:active" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
