package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventEnvelope_Validation(t *testing.T) {
	now := time.Now()
	id := uuid.New()

	tests := []struct {
		name     string
		envelope EventEnvelope
		wantErr  string
	}{
		{
			name: "valid envelope",
			envelope: EventEnvelope{
				UUID:            id,
				Name:            "purchase",
				Timestamp:       now,
				EventProperties: map[string]interface{}{"user_id": "u1", "amount": 10.5},
			},
		},
		{
			name: "missing uuid",
			envelope: EventEnvelope{
				Name:            "purchase",
				Timestamp:       now,
				EventProperties: map[string]interface{}{"user_id": "u1"},
			},
			wantErr: "uuid is required",
		},
		{
			name: "missing name",
			envelope: EventEnvelope{
				UUID:            id,
				Timestamp:       now,
				EventProperties: map[string]interface{}{"user_id": "u1"},
			},
			wantErr: "name is required",
		},
		{
			name: "missing timestamp",
			envelope: EventEnvelope{
				UUID:            id,
				Name:            "purchase",
				EventProperties: map[string]interface{}{"user_id": "u1"},
			},
			wantErr: "timestamp is required",
		},
		{
			name: "missing properties",
			envelope: EventEnvelope{
				UUID:      id,
				Name:      "purchase",
				Timestamp: now,
			},
			wantErr: "event_properties is required",
		},
		{
			name: "empty properties object is allowed by the envelope",
			envelope: EventEnvelope{
				UUID:            id,
				Name:            "purchase",
				Timestamp:       now,
				EventProperties: map[string]interface{}{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.envelope.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEventEnvelope_WireFieldNames(t *testing.T) {
	raw := `{
		"uuid": "6c1f3a1e-52a5-4f39-9be1-1f4d4f2b8a01",
		"name": "add_credit_card",
		"timestamp": "2024-01-01T12:00:00Z",
		"event_properties": {"user_id": "u1", "zipcode": "94103"}
	}`

	var e EventEnvelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if e.UUID.String() != "6c1f3a1e-52a5-4f39-9be1-1f4d4f2b8a01" {
		t.Errorf("UUID mismatch: got %v", e.UUID)
	}
	if e.Name != "add_credit_card" {
		t.Errorf("Name mismatch: got %q", e.Name)
	}
	if zip, ok := e.EventProperties["zipcode"].(string); !ok || zip != "94103" {
		t.Errorf("EventProperties payload mismatch: %v", e.EventProperties)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() failed on decoded envelope: %v", err)
	}
}

func TestEventEnvelope_RejectsMalformedUUID(t *testing.T) {
	raw := `{"uuid": "not-a-uuid", "name": "purchase", "timestamp": "2024-01-01T12:00:00Z", "event_properties": {}}`

	var e EventEnvelope
	if err := json.Unmarshal([]byte(raw), &e); err == nil {
		t.Fatal("Expected unmarshal error for malformed uuid")
	}
}
