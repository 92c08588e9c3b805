package services

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tdcon/workplatform/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types shared by both per-entity journals.
const (
	EventCreated             = "created"
	EventUpdated             = "updated"
	EventAssigned            = "assigned"
	EventDeleted             = "deleted"
	EventMaintenanceRecorded = "maintenance_recorded"
)

func marshalEventPayload(payload map[string]any) (datatypes.JSON, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// LogTicketEvent appends one journal entry for a ticket. The caller passes
// the business transaction: a failed append must roll back the entity
// mutation with it.
func LogTicketEvent(tx *gorm.DB, ticketID uuid.UUID, actorID *uuid.UUID, eventType string, payload map[string]any) error {
	body, err := marshalEventPayload(payload)
	if err != nil {
		return err
	}
	event := models.TicketEvent{
		TicketID:  ticketID,
		ActorID:   actorID,
		EventType: eventType,
		Payload:   body,
	}
	return tx.Create(&event).Error
}

// LogAssetEvent appends one journal entry for an asset, same transactional
// contract as LogTicketEvent.
func LogAssetEvent(tx *gorm.DB, assetID uuid.UUID, actorID *uuid.UUID, eventType string, payload map[string]any) error {
	body, err := marshalEventPayload(payload)
	if err != nil {
		return err
	}
	event := models.AssetEvent{
		AssetID:   assetID,
		ActorID:   actorID,
		EventType: eventType,
		Payload:   body,
	}
	return tx.Create(&event).Error
}
