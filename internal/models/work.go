package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title     string     `gorm:"not null" json:"title"`
	Message   string     `gorm:"type:text;default:''" json:"message"`
	Category  string     `gorm:"default:'info'" json:"category"` // info, reminder, warning
	DueDate   *time.Time `gorm:"type:date" json:"due_date"`
	IsRead    bool       `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// KnowledgeArticle tags are stored as a comma-separated string and
// normalized (trimmed, case-insensitively deduplicated) on write.
type KnowledgeArticle struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title     string    `gorm:"not null" json:"title"`
	Summary   string    `gorm:"type:text;default:''" json:"summary"`
	Content   string    `gorm:"type:text;default:''" json:"content"`
	Tags      string    `gorm:"type:text;default:''" json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (k *KnowledgeArticle) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

type TeamEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string    `gorm:"not null" json:"title"`
	EventDate   time.Time `gorm:"type:date;not null" json:"event_date"`
	Description string    `gorm:"type:text;default:''" json:"description"`
	Owner       string    `gorm:"default:''" json:"owner"`
	Location    string    `gorm:"default:''" json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *TeamEvent) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
