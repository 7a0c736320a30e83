package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/simgate/sim-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUssdCompleted     EventType = "ussd_completed"
	EventSlotStatusChanged EventType = "slot_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	SlotNumber int         `json:"slot_number"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// UssdCompletedPayload carries a finished session. Amount is set when a
// balance figure could be read from the decoded message.
type UssdCompletedPayload struct {
	Outcome domain.UssdOutcome `json:"outcome"`
	Amount  *float64           `json:"amount,omitempty"`
}

// SlotStatusChangedPayload payload.
type SlotStatusChangedPayload struct {
	OldStatus domain.SlotStatus `json:"old_status"`
	NewStatus domain.SlotStatus `json:"new_status"`
	Deferred  bool              `json:"deferred"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, slotNumber int, at time.Time, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SlotNumber: slotNumber,
		Timestamp:  at.UTC(),
		Payload:    payload,
	}
}
