package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the status of an event in the outbox.
type EventStatus string

const (
	// EventStatusPending indicates the event has been created but not yet published
	EventStatusPending EventStatus = "pending"
	// EventStatusProcessed indicates the event has been successfully published
	EventStatusProcessed EventStatus = "processed"
	// EventStatusFailed indicates publishing the event has failed
	EventStatusFailed EventStatus = "failed"
)

// Product event types written to the outbox.
const (
	EventTypeProductCreated = "product.created"
	EventTypeProductUpdated = "product.updated"
	EventTypeProductDeleted = "product.deleted"
)

// Event represents an outbox entry describing a product change.
type Event struct {
	ID          uuid.UUID
	EventType   string
	EventData   json.RawMessage
	Status      EventStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// InitMeta initializes the event ID, creation time and default status.
func (e *Event) InitMeta() {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	if e.Status == "" {
		e.Status = EventStatusPending
	}
}

// NewEvent builds a pending event with JSON encoded data.
func NewEvent(eventType string, eventData any) (*Event, error) {
	data, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return &Event{
		EventType: eventType,
		EventData: data,
		Status:    EventStatusPending,
	}, nil
}
