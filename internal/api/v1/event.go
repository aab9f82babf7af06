package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known property and event names shared across the wire surface.
const (
	// PropertyUserID is required in every event's properties; it keys all
	// per-user state.
	PropertyUserID = "user_id"

	// PropertyFeature appears in grant-change notification properties.
	PropertyFeature = "feature"

	// EventAccessGranted and EventAccessRevoked are the names of the
	// notification events emitted on grant transitions.
	EventAccessGranted = "access_granted"
	EventAccessRevoked = "access_revoked"
)

// EventEnvelope is the wire format for behavioral events. The same shape is
// accepted on POST /event and emitted to subscribers as grant-change
// notifications.
type EventEnvelope struct {
	// UUID identifies this occurrence of the event. Aggregates that count
	// or sum use it as the dedupe key, so retried deliveries are safe.
	UUID uuid.UUID `json:"uuid"`

	// Name is the event type, e.g. "purchase" or "scam_flag". It selects
	// the registered properties schema and the aggregates to update.
	Name string `json:"name"`

	// Timestamp is the client-side occurrence time.
	Timestamp time.Time `json:"timestamp"`

	// EventProperties is the dynamic payload. It must contain "user_id";
	// the rest is dictated by the event's registered schema.
	EventProperties map[string]interface{} `json:"event_properties"`
}

// Validate ensures the envelope carries all required attributes.
func (e *EventEnvelope) Validate() error {
	if e.UUID == uuid.Nil {
		return fmt.Errorf("uuid is required")
	}

	if e.Name == "" {
		return fmt.Errorf("name is required")
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if e.EventProperties == nil {
		return fmt.Errorf("event_properties is required")
	}

	return nil
}
