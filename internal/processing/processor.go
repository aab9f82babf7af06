// Package processing drains the event queue and drives aggregates, rules,
// and grants from each decoded event.
package processing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verdict-lab/project-verdict/internal/core/aggregate"
	"github.com/verdict-lab/project-verdict/internal/core/event"
	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/core/rule"
)

// GrantService is the slice of the grant service the processor drives.
type GrantService interface {
	Grant(userID string, f *feature.Feature)
	Revoke(userID string, f *feature.Feature)
}

// Processor folds one event into the affected aggregates, re-evaluates the
// rules reading them, and settles the grants of every feature a failing
// rule touches.
type Processor struct {
	aggregates *aggregate.Store
	rules      *rule.Store
	features   *feature.Registry
	grants     GrantService
}

func NewProcessor(aggregates *aggregate.Store, rules *rule.Store, features *feature.Registry, grants GrantService) *Processor {
	if aggregates == nil {
		panic("processing: aggregate store is required")
	}
	if rules == nil {
		panic("processing: rule store is required")
	}
	if features == nil {
		panic("processing: feature registry is required")
	}
	if grants == nil {
		panic("processing: grant service is required")
	}

	return &Processor{
		aggregates: aggregates,
		rules:      rules,
		features:   features,
		grants:     grants,
	}
}

// Process runs one event through the pipeline. An aggregation error aborts
// the event; aggregates already updated for it stand, since accumulators
// never roll back.
func (p *Processor) Process(ctx context.Context, evt *event.Event) error {
	userID := evt.Properties.UserID()

	aggregates := p.aggregates.ByEventName(evt.Name)
	if len(aggregates) == 0 {
		slog.Debug("Event feeds no aggregates", "event", evt.Name, "event_id", evt.UUID)
		return nil
	}

	var affected []*rule.Rule
	seenRules := make(map[string]struct{})
	for _, agg := range aggregates {
		if err := agg.Update(userID, evt); err != nil {
			return fmt.Errorf("updating aggregate %q: %w", agg.Name, err)
		}
		for _, r := range p.rules.ByAggregate(agg.Name) {
			if _, ok := seenRules[r.Name]; ok {
				continue
			}
			seenRules[r.Name] = struct{}{}
			affected = append(affected, r)
		}
	}

	var candidates []*feature.Feature
	seenFeatures := make(map[string]struct{})
	for _, r := range affected {
		if r.Abides(userID) {
			continue
		}
		for _, f := range p.features.ByRule(r.Name) {
			if _, ok := seenFeatures[f.Name]; ok {
				continue
			}
			seenFeatures[f.Name] = struct{}{}
			candidates = append(candidates, f)
		}
	}

	p.settle(userID, candidates)
	return nil
}

// settle moves the user's grant on every candidate feature to match a fresh
// check of all its rules. Candidates arrive here because at least one of
// their rules failed, but a concurrent worker may have moved an aggregate
// since that evaluation, so the verdict is re-derived rather than assumed.
func (p *Processor) settle(userID string, candidates []*feature.Feature) {
	for _, f := range candidates {
		if p.featureAbides(userID, f) {
			p.grants.Grant(userID, f)
		} else {
			p.grants.Revoke(userID, f)
		}
	}
}

// featureAbides reports whether the user passes every rule of the feature.
func (p *Processor) featureAbides(userID string, f *feature.Feature) bool {
	for _, r := range f.Rules {
		if !r.Abides(userID) {
			return false
		}
	}
	return true
}
