// Package feature groups rules into gateable product features. A user's
// access to a feature abides only when every one of its rules abides.
package feature

import (
	"fmt"
	"regexp"

	"github.com/verdict-lab/project-verdict/internal/core/rule"
)

// Feature names are spliced into the GET /can<name> path, so they are
// restricted to short lowercase ASCII.
var nameRE = regexp.MustCompile(`^[a-z]{1,16}$`)

// Feature is a named product capability guarded by a set of rules.
type Feature struct {
	Name  string
	Rules []*rule.Rule
}

// New validates the feature declaration.
func New(name string, rules []*rule.Rule) (*Feature, error) {
	if !nameRE.MatchString(name) {
		return nil, fmt.Errorf("feature name %q must match %s", name, nameRE.String())
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("feature %q: at least one rule is required", name)
	}
	return &Feature{Name: name, Rules: rules}, nil
}

// ValidName reports whether name is usable as a feature name.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}
