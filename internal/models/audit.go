package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is the process-wide record of privileged operations, distinct
// from the per-entity ticket/asset event journals. Rows are written on a
// separate connection so a rolled-back business transaction cannot take the
// audit record down with it.
type AuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorUserID    *uuid.UUID     `gorm:"type:uuid;index" json:"actor_user_id"`
	ActorEmail     string         `gorm:"default:'anonymous'" json:"actor_email"`
	ActorRole      string         `gorm:"default:'anonymous'" json:"actor_role"`
	Action         string         `gorm:"not null;index" json:"action"` // e.g. admin.user.create, auth.change_password
	TargetType     string         `gorm:"not null" json:"target_type"`
	TargetID       *string        `json:"target_id"`
	Status         string         `gorm:"not null" json:"status"` // success, failure
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	RequestID      string         `gorm:"index" json:"request_id"`
	IPAddress      *string        `json:"ip_address"`
	RetentionUntil time.Time      `gorm:"index" json:"retention_until"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
