// Package rule renders per-user boolean verdicts from aggregate values.
// Rules are declared in policy config and frozen at startup; evaluation
// happens on the event-processing path only, never on reads.
package rule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/verdict-lab/project-verdict/internal/core/aggregate"
)

// Operation selects how a rule derives its value from aggregates.
type Operation string

const (
	// OpValue reads the first aggregate directly.
	OpValue Operation = "VALUE"
	// OpDivide divides the first aggregate by the second.
	OpDivide Operation = "DIVIDE"
)

// Condition compares the derived value against the threshold.
type Condition string

const (
	CondLessThan    Condition = "<"
	CondGreaterThan Condition = ">"
)

// Rule derives a value from one or two aggregates and checks it against a
// threshold. A user "abides" when the check passes; any rule that does not
// abide can pull down every feature containing it.
type Rule struct {
	Name       string
	Operation  Operation
	Aggregate1 *aggregate.Aggregate
	Aggregate2 *aggregate.Aggregate
	Threshold  decimal.Decimal
	Condition  Condition

	// DenomMin suppresses DIVIDE rules while the denominator sample is too
	// small to mean anything: below it the rule abides unconditionally.
	DenomMin *decimal.Decimal
}

// New validates the rule declaration.
func New(name string, op Operation, agg1, agg2 *aggregate.Aggregate, threshold decimal.Decimal, cond Condition, denomMin *decimal.Decimal) (*Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("rule name must not be empty")
	}
	if op != OpValue && op != OpDivide {
		return nil, fmt.Errorf("rule %q: unsupported operation %q", name, op)
	}
	if cond != CondLessThan && cond != CondGreaterThan {
		return nil, fmt.Errorf("rule %q: unsupported condition %q", name, cond)
	}
	if agg1 == nil {
		return nil, fmt.Errorf("rule %q: aggregate1 is required", name)
	}
	switch op {
	case OpValue:
		if agg2 != nil {
			return nil, fmt.Errorf("rule %q: VALUE takes a single aggregate", name)
		}
		if denomMin != nil {
			return nil, fmt.Errorf("rule %q: denom_min only applies to DIVIDE", name)
		}
	case OpDivide:
		if agg2 == nil {
			return nil, fmt.Errorf("rule %q: DIVIDE requires aggregate2", name)
		}
	}

	return &Rule{
		Name:       name,
		Operation:  op,
		Aggregate1: agg1,
		Aggregate2: agg2,
		Threshold:  threshold,
		Condition:  cond,
		DenomMin:   denomMin,
	}, nil
}

// Evaluate derives the rule's value for a user. The second return is the
// small-sample override: true when DenomMin is set and the denominator has
// not reached it yet. A zero denominator yields a value of zero rather than
// an error.
func (r *Rule) Evaluate(userID string) (decimal.Decimal, bool) {
	if r.Operation == OpDivide {
		denom := r.Aggregate2.Value(userID)
		override := r.DenomMin != nil && denom.LessThan(*r.DenomMin)
		if denom.IsZero() {
			return decimal.Zero, override
		}
		return r.Aggregate1.Value(userID).Div(denom), override
	}
	return r.Aggregate1.Value(userID), false
}

// Abides reports whether the user currently passes this rule. Threshold
// comparisons are strict: equality never abides.
func (r *Rule) Abides(userID string) bool {
	value, override := r.Evaluate(userID)
	if override {
		return true
	}
	switch r.Condition {
	case CondLessThan:
		return value.LessThan(r.Threshold)
	case CondGreaterThan:
		return value.GreaterThan(r.Threshold)
	}
	return false
}
