package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/verdict-lab/project-verdict/internal/core/aggregate"
	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/core/rule"
	"github.com/verdict-lab/project-verdict/internal/schema"
)

// Stores holds the four frozen registries a policy builds into.
type Stores struct {
	Schemas    *schema.Registry
	Aggregates *aggregate.Store
	Rules      *rule.Store
	Features   *feature.Registry
}

// Build constructs and cross-validates the registries. Any inconsistency
// aborts startup: unknown source events, aggregate fields the source schema
// never carries, rules over unknown aggregates, features over unknown rules,
// and duplicates anywhere.
func Build(p *Policy) (*Stores, error) {
	schemas := schema.NewRegistry()
	for eventName, fields := range p.EventSchemas {
		if err := schemas.Register(schema.NewPropertiesSchema(eventName, fields...)); err != nil {
			return nil, fmt.Errorf("registering schema: %w", err)
		}
	}

	aggregates := aggregate.NewStore()
	for _, ac := range p.Aggregates {
		src, err := schemas.Schema(ac.Event)
		if err != nil {
			return nil, fmt.Errorf("aggregate %q: %w", ac.Name, err)
		}
		if ac.Field != "" && !src.HasField(ac.Field) {
			return nil, fmt.Errorf("aggregate %q: field %q is not declared for event %q", ac.Name, ac.Field, ac.Event)
		}
		a, err := aggregate.New(ac.Name, ac.Event, aggregate.Kind(ac.Type), ac.Field)
		if err != nil {
			return nil, err
		}
		if err := aggregates.Add(a); err != nil {
			return nil, err
		}
	}

	rules := rule.NewStore()
	for _, rc := range p.Rules {
		agg1, err := aggregates.ByName(rc.Aggregate1)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
		}
		var agg2 *aggregate.Aggregate
		if rc.Aggregate2 != "" {
			if agg2, err = aggregates.ByName(rc.Aggregate2); err != nil {
				return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
			}
		}
		var denomMin *decimal.Decimal
		if rc.DenomMin != nil {
			d := decimal.NewFromFloat(*rc.DenomMin)
			denomMin = &d
		}
		r, err := rule.New(rc.Name, rule.Operation(rc.Operation), agg1, agg2,
			decimal.NewFromFloat(rc.Value), rule.Condition(rc.Condition), denomMin)
		if err != nil {
			return nil, err
		}
		if err := rules.Add(r); err != nil {
			return nil, err
		}
	}

	features := feature.NewRegistry()
	for _, fc := range p.Features {
		ruleList := make([]*rule.Rule, 0, len(fc.Rules))
		for _, name := range fc.Rules {
			r, err := rules.ByName(name)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", fc.Name, err)
			}
			ruleList = append(ruleList, r)
		}
		f, err := feature.New(fc.Name, ruleList)
		if err != nil {
			return nil, err
		}
		if err := features.Add(f); err != nil {
			return nil, err
		}
	}

	return &Stores{
		Schemas:    schemas,
		Aggregates: aggregates,
		Rules:      rules,
		Features:   features,
	}, nil
}
