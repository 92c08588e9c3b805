package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Asset struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	AssetTag     string    `gorm:"uniqueIndex;not null" json:"asset_tag"`
	Name         string    `gorm:"not null" json:"name"`
	QRCode       string    `gorm:"default:''" json:"qr_code"`
	Location     string    `gorm:"default:''" json:"location"`
	SerialNumber string    `gorm:"default:''" json:"serial_number"`
	Category     string    `gorm:"default:''" json:"category"`
	Manufacturer string    `gorm:"default:''" json:"manufacturer"`
	Model        string    `gorm:"default:''" json:"model"`
	Supplier     string    `gorm:"default:''" json:"supplier"`
	Status       string    `gorm:"default:'active'" json:"status"` // active, maintenance, retired, lost
	AssignedUser string    `gorm:"default:''" json:"assigned_user"`
	Condition    string    `gorm:"default:''" json:"condition"`
	Notes        string    `gorm:"type:text;default:''" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AssetEvent mirrors TicketEvent for the asset journal. The asset reference
// is deliberately not a foreign key: maintenance_recorded events may outlive
// the exact-match lookup that produced them.
type AssetEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"asset_id"`
	ActorID   *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"`
	EventType string         `gorm:"not null" json:"event_type"` // created, updated, deleted, maintenance_recorded
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (e *AssetEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
