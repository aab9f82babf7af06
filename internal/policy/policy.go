// Package policy declares the gate configuration: event schemas, aggregates,
// rules, and features. A policy is loaded from a YAML file at startup or
// falls back to the built-in product default; either way it is frozen before
// the server starts. No hot reload.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the on-disk YAML shape.
type Policy struct {
	// EventSchemas maps an event name to its required payload fields beyond
	// the implicit user_id.
	EventSchemas map[string][]string `yaml:"event_schemas"`

	Aggregates []AggregateConfig `yaml:"aggregates"`
	Rules      []RuleConfig      `yaml:"rules"`
	Features   []FeatureConfig   `yaml:"features"`
}

// AggregateConfig declares one per-user accumulator.
type AggregateConfig struct {
	Name  string `yaml:"name"`
	Event string `yaml:"event"`
	Type  string `yaml:"type"`  // count, distinct_count, sum
	Field string `yaml:"field"` // empty for count
}

// RuleConfig declares one threshold rule over aggregates.
type RuleConfig struct {
	Name       string   `yaml:"name"`
	Operation  string   `yaml:"operation"` // VALUE, DIVIDE
	Aggregate1 string   `yaml:"aggregate1"`
	Aggregate2 string   `yaml:"aggregate2"` // DIVIDE only
	Condition  string   `yaml:"condition"`  // "<", ">"
	Value      float64  `yaml:"value"`
	DenomMin   *float64 `yaml:"denom_min"` // DIVIDE only, optional
}

// FeatureConfig declares one gated feature as the AND of named rules.
type FeatureConfig struct {
	Name  string   `yaml:"name"`
	Rules []string `yaml:"rules"`
}

// Load reads and parses a policy file. Cross-validation happens in Build.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	return &p, nil
}

// Default returns the built-in product policy, used when no policy file is
// configured: message gating on scam flags, purchase gating on card zip
// spread and chargeback ratio.
func Default() *Policy {
	zipDenomMin := 3.0
	return &Policy{
		EventSchemas: map[string][]string{
			"scam_flag":       {},
			"add_credit_card": {"zipcode"},
			"chargeback":      {"amount"},
			"purchase":        {"amount"},
		},
		Aggregates: []AggregateConfig{
			{Name: "total_scam_flags", Event: "scam_flag", Type: "count"},
			{Name: "credit_card_distinct_zips", Event: "add_credit_card", Type: "distinct_count", Field: "zipcode"},
			{Name: "total_credit_cards", Event: "add_credit_card", Type: "count"},
			{Name: "total_chargeback_amount", Event: "chargeback", Type: "sum", Field: "amount"},
			{Name: "total_purchase_amount", Event: "purchase", Type: "sum", Field: "amount"},
		},
		Rules: []RuleConfig{
			{
				Name:       "cannot_scam_message",
				Operation:  "VALUE",
				Aggregate1: "total_scam_flags",
				Condition:  "<",
				Value:      2,
			},
			{
				Name:       "too_many_distinct_zips",
				Operation:  "DIVIDE",
				Aggregate1: "credit_card_distinct_zips",
				Aggregate2: "total_credit_cards",
				Condition:  "<",
				Value:      0.25,
				DenomMin:   &zipDenomMin,
			},
			{
				Name:       "chargeback_to_purchase_ratio",
				Operation:  "DIVIDE",
				Aggregate1: "total_chargeback_amount",
				Aggregate2: "total_purchase_amount",
				Condition:  "<",
				Value:      0.10,
			},
		},
		Features: []FeatureConfig{
			{Name: "purchase", Rules: []string{"too_many_distinct_zips", "chargeback_to_purchase_ratio"}},
			{Name: "message", Rules: []string{"cannot_scam_message"}},
		},
	}
}
