package schema

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotRegistered is returned when decoding an event name with no
	// registered schema.
	ErrNotRegistered = errors.New("event schema not registered")

	// ErrAlreadyRegistered is returned when a schema is registered twice
	// for the same event name.
	ErrAlreadyRegistered = errors.New("event schema already registered")
)

// ValidationError reports a payload that does not satisfy its event schema.
type ValidationError struct {
	EventName string `json:"event_name"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q: %s (event %s)", e.Field, e.Message, e.EventName)
	}
	return fmt.Sprintf("%s (event %s)", e.Message, e.EventName)
}

// ValidationDetailer surfaces structured validation details for API error
// responses without type-asserting against concrete structs.
type ValidationDetailer interface {
	Details() map[string]interface{}
}

// Details returns the structured fields from this validation error.
func (e *ValidationError) Details() map[string]interface{} {
	d := map[string]interface{}{"event_name": e.EventName}
	if e.Field != "" {
		d["field"] = e.Field
	}
	return d
}
