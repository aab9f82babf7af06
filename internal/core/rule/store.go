package rule

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when a rule name is registered twice.
	ErrDuplicate = errors.New("rule already exists")

	// ErrNotFound is returned when looking up an unknown rule.
	ErrNotFound = errors.New("rule not found")
)

// Store indexes rules by name and by the aggregates they read, so the
// processor can find every rule a just-updated aggregate might flip.
// Populated at startup, read-only afterwards.
type Store struct {
	byName      map[string]*Rule
	byAggregate map[string][]*Rule
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		byName:      make(map[string]*Rule),
		byAggregate: make(map[string][]*Rule),
	}
}

// Add registers a rule and indexes it under both of its aggregates.
func (s *Store) Add(r *Rule) error {
	if _, exists := s.byName[r.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, r.Name)
	}
	s.byName[r.Name] = r
	s.byAggregate[r.Aggregate1.Name] = append(s.byAggregate[r.Aggregate1.Name], r)
	if r.Aggregate2 != nil {
		s.byAggregate[r.Aggregate2.Name] = append(s.byAggregate[r.Aggregate2.Name], r)
	}
	return nil
}

// ByName returns the rule with the given name.
func (s *Store) ByName(name string) (*Rule, error) {
	r, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return r, nil
}

// ByAggregate returns every rule that reads the named aggregate, as
// numerator or denominator.
func (s *Store) ByAggregate(name string) []*Rule {
	return s.byAggregate[name]
}

// Len returns the number of registered rules.
func (s *Store) Len() int {
	return len(s.byName)
}
