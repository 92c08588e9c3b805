package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash        string     `gorm:"not null" json:"-"`
	Role                string     `gorm:"default:'user'" json:"role"` // admin, developer, user
	PreferredLanguage   string     `gorm:"default:'en'" json:"preferred_language"`
	MustSetPassword     bool       `gorm:"default:false" json:"must_set_password"`
	ActivationTokenHash *string    `gorm:"index" json:"-"`
	ActivationExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleModuleAccess stores per-role enablement overrides for functional
// modules. Absent rows fall back to the role defaults in services.
type RoleModuleAccess struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role      string    `gorm:"index:idx_role_module,unique;not null" json:"role"`
	Module    string    `gorm:"index:idx_role_module,unique;not null" json:"module"` // personal, work, tickets, assets, admin
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *RoleModuleAccess) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
