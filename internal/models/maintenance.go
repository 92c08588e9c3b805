package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaintenanceRecord struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"owner_id"`
	MaintenanceDate time.Time          `gorm:"type:date;not null" json:"maintenance_date"`
	QR              string             `gorm:"not null" json:"qr"`
	Brand           string             `gorm:"not null" json:"brand"`
	Model           string             `gorm:"not null" json:"model"`
	UserName        string             `gorm:"not null" json:"user_name"`
	SerialNumber    string             `gorm:"not null" json:"serial_number"`
	Consecutive     string             `gorm:"not null" json:"consecutive"`
	MaintenanceType string             `gorm:"not null" json:"maintenance_type"` // P (preventive), C (corrective)
	Location        string             `gorm:"not null" json:"location"`
	ResponsibleName string             `gorm:"not null" json:"responsible_name"`
	Checks          []MaintenanceCheck `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"checks"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (m *MaintenanceRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MaintenanceCheck is one inspection line item. The ID is the caller's
// checklist key (e.g. "hardware-general-cleaning"), not a generated uuid.
type MaintenanceCheck struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	RecordID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"record_id"`
	Label       string    `gorm:"type:text" json:"label"`
	Category    string    `json:"category"`
	Checked     bool      `gorm:"default:false" json:"checked"`
	Observation string    `gorm:"type:text;default:''" json:"observation"`
}
