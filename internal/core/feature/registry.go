package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when a feature name is registered twice.
	ErrDuplicate = errors.New("feature already exists")

	// ErrNotFound is returned when looking up an unknown feature.
	ErrNotFound = errors.New("feature not found")
)

// Registry indexes features by name and by the rules they contain, so the
// processor can find every feature a failing rule might revoke. Frozen at
// startup; grant defaults are materialized from the frozen List.
type Registry struct {
	byName map[string]*Feature
	byRule map[string][]*Feature
	order  []*Feature
}

// NewRegistry creates an empty feature registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Feature),
		byRule: make(map[string][]*Feature),
	}
}

// Add registers a feature and indexes it under each of its rules.
func (r *Registry) Add(f *Feature) error {
	if _, exists := r.byName[f.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, f.Name)
	}
	r.byName[f.Name] = f
	r.order = append(r.order, f)
	for _, ru := range f.Rules {
		r.byRule[ru.Name] = append(r.byRule[ru.Name], f)
	}
	return nil
}

// ByName returns the feature with the given name.
func (r *Registry) ByName(name string) (*Feature, error) {
	f, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, nil
}

// ByRule returns every feature containing the named rule.
func (r *Registry) ByRule(ruleName string) []*Feature {
	return r.byRule[ruleName]
}

// List returns all features in registration order.
func (r *Registry) List() []*Feature {
	return r.order
}

// Len returns the number of registered features.
func (r *Registry) Len() int {
	return len(r.byName)
}
