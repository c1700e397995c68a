package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole defines the workflow role an account holds.
type UserRole string

const (
	RoleMEOAdmin   UserRole = "meoadmin"
	RoleBFPAdmin   UserRole = "bfpadmin"
	RoleMayorAdmin UserRole = "mayoradmin"
	RoleApplicant  UserRole = "applicant"
)

// IsAdmin reports whether the role belongs to one of the reviewing offices.
func (r UserRole) IsAdmin() bool {
	return r == RoleMEOAdmin || r == RoleBFPAdmin || r == RoleMayorAdmin
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	FirstName    string    `gorm:"not null" json:"first_name"`
	LastName     string    `gorm:"not null" json:"last_name"`
	Email        string    `gorm:"unique;not null;index" json:"email"`
	PhoneNumber  *string   `json:"phone_number"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'applicant';index" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	TOTPEnabled  bool      `gorm:"default:false" json:"totp_enabled"`

	// Audit fields
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
