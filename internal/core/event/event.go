// Package event holds the decoded domain representation of a behavioral
// event. Raw JSON payloads are decoded exactly once at ingress; everything
// downstream works against the typed Properties view.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Properties is the decoded, schema-checked view of an event payload.
// Implementations are produced by the schema registry.
type Properties interface {
	// UserID returns the owning user. Decoding guarantees it is non-empty.
	UserID() string

	// Field returns a named payload field and whether it is present.
	Field(name string) (interface{}, bool)
}

// Event is a single behavioral occurrence flowing through the pipeline.
type Event struct {
	// UUID is the occurrence identity and the dedupe key for count and sum
	// aggregates.
	UUID uuid.UUID

	// Name selects which aggregates the event feeds.
	Name string

	// Timestamp is the client-side occurrence time.
	Timestamp time.Time

	// Properties is the decoded payload.
	Properties Properties
}
