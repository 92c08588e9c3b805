package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Ticket struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"requester_id"`
	Title              string         `gorm:"not null" json:"title"`
	Description        string         `gorm:"type:text;default:''" json:"description"`
	Category           string         `gorm:"default:'help'" json:"category"` // printer, help, network, software, hardware, access
	Priority           string         `gorm:"default:'medium'" json:"priority"` // low, medium, high, critical
	Status             string         `gorm:"default:'new'" json:"status"`
	Resolution         string         `gorm:"type:text;default:''" json:"resolution"`
	ProcessNotes       string         `gorm:"type:text;default:''" json:"process_notes"`
	Evidence           datatypes.JSON `gorm:"type:jsonb" json:"evidence"`
	FixedByID          *uuid.UUID     `gorm:"type:uuid" json:"fixed_by_id"`
	AssigneeID         *uuid.UUID     `gorm:"type:uuid;index" json:"assignee_id"`
	FirstResponseDueAt *time.Time     `json:"first_response_due_at"`
	ResolutionDueAt    *time.Time     `json:"resolution_due_at"`
	FirstRespondedAt   *time.Time     `json:"first_responded_at"`
	ResolvedAt         *time.Time     `json:"resolved_at"`
	ClosedAt           *time.Time     `json:"closed_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// EvidenceItem is the shape stored inside Ticket.Evidence. The column is a
// JSON array; items are validated on write and re-shaped on read.
type EvidenceItem struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	ImageData *string `json:"image_data,omitempty"`
	ImageName *string `json:"image_name,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// TicketEvent is an append-only journal entry. Rows are never updated or
// deleted individually; they go away only when the owning ticket is deleted.
type TicketEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"ticket_id"`
	ActorID   *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"`
	EventType string         `gorm:"not null" json:"event_type"` // created, updated, assigned
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (e *TicketEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
