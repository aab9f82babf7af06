// Package aggregate maintains per-user accumulators over behavioral events.
// Aggregates are declared in policy config, frozen at startup, and updated
// in memory as events arrive. Values feed rule evaluation.
package aggregate

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/verdict-lab/project-verdict/internal/core/event"
)

// Aggregate is a named per-user accumulator over one event name.
// Workers are not partitioned by user, so each aggregate serializes its own
// state behind a mutex; updates to different aggregates may interleave.
type Aggregate struct {
	Name      string
	EventName string
	Kind      Kind
	Field     string

	mu    sync.Mutex
	users map[string]Accumulator
}

// New validates the aggregate declaration and returns an empty aggregate.
func New(name, eventName string, kind Kind, field string) (*Aggregate, error) {
	if name == "" {
		return nil, fmt.Errorf("aggregate name must not be empty")
	}
	if eventName == "" {
		return nil, fmt.Errorf("aggregate %q: event name must not be empty", name)
	}
	spec, ok := Kinds[kind]
	if !ok {
		return nil, fmt.Errorf("aggregate %q: unsupported kind %q", name, kind)
	}
	if spec.RequiresField && field == "" {
		return nil, fmt.Errorf("aggregate %q: kind %q requires a field", name, kind)
	}
	if !spec.RequiresField && field != "" {
		return nil, fmt.Errorf("aggregate %q: kind %q does not take a field", name, kind)
	}

	return &Aggregate{
		Name:      name,
		EventName: eventName,
		Kind:      kind,
		Field:     field,
		users:     make(map[string]Accumulator),
	}, nil
}

// Update folds an event into the user's accumulator, creating it on first
// sight. An extraction error leaves the accumulator unchanged but already
// materialized.
func (a *Aggregate) Update(userID string, evt *event.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.users[userID]
	if !ok {
		acc = Kinds[a.Kind].New(a.Field)
		a.users[userID] = acc
	}
	return acc.Observe(evt)
}

// Value returns the user's current accumulated value. Unseen users read as
// zero; this is never an error.
func (a *Aggregate) Value(userID string) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.users[userID]
	if !ok {
		return decimal.Zero
	}
	return acc.Value()
}
