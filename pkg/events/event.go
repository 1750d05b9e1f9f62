package events

import "time"

// Event types emitted on the lifecycle stream.
const (
	TypeSessionStarted   = "SESSION_STARTED"
	TypeSessionEnded     = "SESSION_ENDED"
	TypeDocumentIngested = "DOCUMENT_INGESTED"
	TypeDocumentDeleted  = "DOCUMENT_DELETED"
	TypeClientDeleted    = "CLIENT_DELETED"
	TypeErrorEscalated   = "ERROR_ESCALATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New builds an event of the given type occurring now.
func New(eventType string, data map[string]interface{}) Event {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
