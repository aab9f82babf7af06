package schema

import (
	"fmt"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
	"github.com/verdict-lab/project-verdict/internal/core/event"
)

// DecodeFunc turns a raw properties map into the typed payload view.
type DecodeFunc func(raw map[string]interface{}) (event.Properties, error)

// Registry holds one schema and decoder per event name. Events with no
// entry are rejected at ingress. Populated at startup, read-only
// afterwards, so lookups take no lock.
type Registry struct {
	schemas  map[string]*PropertiesSchema
	decoders map[string]DecodeFunc
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas:  make(map[string]*PropertiesSchema),
		decoders: make(map[string]DecodeFunc),
	}
}

// Register adds a schema and derives its decoder. Registering the same
// event name twice fails.
func (r *Registry) Register(s *PropertiesSchema) error {
	if s.EventName == "" {
		return fmt.Errorf("event name must not be empty")
	}
	if _, exists := r.schemas[s.EventName]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, s.EventName)
	}
	r.schemas[s.EventName] = s
	r.decoders[s.EventName] = s.decoder()
	return nil
}

// Decode runs the event name's registered decoder over a raw payload.
func (r *Registry) Decode(eventName string, raw map[string]interface{}) (event.Properties, error) {
	dec, ok := r.decoders[eventName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, eventName)
	}
	return dec(raw)
}

// Schema returns the registered schema for an event name.
func (r *Registry) Schema(eventName string) (*PropertiesSchema, error) {
	s, ok := r.schemas[eventName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, eventName)
	}
	return s, nil
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.schemas)
}

// decoder builds the DecodeFunc for this schema: user_id must be a
// non-empty string and every declared field must be present. Emptiness of
// aggregated values is judged later, by the aggregate that reads them.
// Extra fields pass through untouched.
func (s *PropertiesSchema) decoder() DecodeFunc {
	return func(raw map[string]interface{}) (event.Properties, error) {
		uid, ok := raw[v1.PropertyUserID].(string)
		if !ok || uid == "" {
			return nil, &ValidationError{
				EventName: s.EventName,
				Field:     v1.PropertyUserID,
				Message:   "must be a non-empty string",
			}
		}
		for _, f := range s.Fields {
			if _, present := raw[f]; !present {
				return nil, &ValidationError{
					EventName: s.EventName,
					Field:     f,
					Message:   "required field is missing",
				}
			}
		}
		return &decodedProperties{userID: uid, fields: raw}, nil
	}
}

// decodedProperties is the concrete payload view handed to the pipeline.
type decodedProperties struct {
	userID string
	fields map[string]interface{}
}

func (p *decodedProperties) UserID() string {
	return p.userID
}

func (p *decodedProperties) Field(name string) (interface{}, bool) {
	v, ok := p.fields[name]
	return v, ok
}
