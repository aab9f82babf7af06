package aggregate

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when an aggregate name is registered twice.
	ErrDuplicate = errors.New("aggregate already exists")

	// ErrNotFound is returned when looking up an unknown aggregate.
	ErrNotFound = errors.New("aggregate not found")
)

// Store indexes aggregates by name and by the event that feeds them.
// It is populated once at startup and read-only afterwards, so lookups
// take no lock.
type Store struct {
	byName  map[string]*Aggregate
	byEvent map[string][]*Aggregate
}

// NewStore creates an empty aggregate store.
func NewStore() *Store {
	return &Store{
		byName:  make(map[string]*Aggregate),
		byEvent: make(map[string][]*Aggregate),
	}
}

// Add registers an aggregate. Duplicate names fail.
func (s *Store) Add(a *Aggregate) error {
	if _, exists := s.byName[a.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, a.Name)
	}
	s.byName[a.Name] = a
	s.byEvent[a.EventName] = append(s.byEvent[a.EventName], a)
	return nil
}

// ByName returns the aggregate with the given name.
func (s *Store) ByName(name string) (*Aggregate, error) {
	a, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// ByEventName returns every aggregate fed by the named event, in
// registration order. Unknown events return nil: the event is simply not
// aggregated.
func (s *Store) ByEventName(name string) []*Aggregate {
	return s.byEvent[name]
}

// Len returns the number of registered aggregates.
func (s *Store) Len() int {
	return len(s.byName)
}
