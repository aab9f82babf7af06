// Package schema declares, per event name, which payload fields an inbound
// event must carry, and decodes raw JSON payloads into the typed view the
// processing pipeline works with. Schemas are registered once at startup
// from policy config; there is no runtime schema management.
package schema

import (
	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
)

// PropertiesSchema lists the required payload fields for one event name.
// Every event additionally requires "user_id"; it is implicit and never
// listed in Fields.
type PropertiesSchema struct {
	EventName string
	Fields    []string
}

// NewPropertiesSchema declares the schema for an event name.
func NewPropertiesSchema(eventName string, fields ...string) *PropertiesSchema {
	return &PropertiesSchema{EventName: eventName, Fields: fields}
}

// HasField reports whether the schema declares the field, including the
// implicit user_id. Policy validation uses this to reject aggregates over
// fields the source event never carries.
func (s *PropertiesSchema) HasField(name string) bool {
	if name == v1.PropertyUserID {
		return true
	}
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}
