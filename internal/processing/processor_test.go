package processing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/verdict-lab/project-verdict/internal/core/aggregate"
	"github.com/verdict-lab/project-verdict/internal/core/event"
	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/core/rule"
)

type grantCall struct {
	action  string
	userID  string
	feature string
}

// recordingGrants is shared with the consumer pool tests, so appends are
// locked.
type recordingGrants struct {
	mu    sync.Mutex
	calls []grantCall
}

func (g *recordingGrants) Grant(userID string, f *feature.Feature) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, grantCall{"grant", userID, f.Name})
}

func (g *recordingGrants) Revoke(userID string, f *feature.Feature) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, grantCall{"revoke", userID, f.Name})
}

type props map[string]interface{}

func (p props) UserID() string { return p["user_id"].(string) }

func (p props) Field(name string) (interface{}, bool) {
	v, ok := p[name]
	return v, ok
}

func newEvent(name string, p props) *event.Event {
	return &event.Event{
		UUID:       uuid.New(),
		Name:       name,
		Timestamp:  time.Now(),
		Properties: p,
	}
}

// scamPipeline wires the message gate: a count of scam flags that revokes
// messaging at the second flag.
func scamPipeline(t *testing.T) (*Processor, *recordingGrants) {
	t.Helper()

	aggregates := aggregate.NewStore()
	flags, err := aggregate.New("total_scam_flags", "scam_flag", aggregate.KindCount, "")
	require.NoError(t, err)
	require.NoError(t, aggregates.Add(flags))

	rules := rule.NewStore()
	r, err := rule.New("cannot_scam_message", rule.OpValue, flags, nil, decimal.NewFromInt(2), rule.CondLessThan, nil)
	require.NoError(t, err)
	require.NoError(t, rules.Add(r))

	features := feature.NewRegistry()
	message, err := feature.New("message", []*rule.Rule{r})
	require.NoError(t, err)
	require.NoError(t, features.Add(message))

	grants := &recordingGrants{}
	return NewProcessor(aggregates, rules, features, grants), grants
}

// cardPipeline wires the purchase gate: distinct zipcodes over total cards,
// suppressed until three cards are on file.
func cardPipeline(t *testing.T) (*Processor, *recordingGrants) {
	t.Helper()

	aggregates := aggregate.NewStore()
	zips, err := aggregate.New("credit_card_distinct_zips", "add_credit_card", aggregate.KindDistinctCount, "zipcode")
	require.NoError(t, err)
	require.NoError(t, aggregates.Add(zips))
	cards, err := aggregate.New("total_credit_cards", "add_credit_card", aggregate.KindCount, "")
	require.NoError(t, err)
	require.NoError(t, aggregates.Add(cards))

	rules := rule.NewStore()
	denomMin := decimal.NewFromInt(3)
	r, err := rule.New("too_many_distinct_zips", rule.OpDivide, zips, cards, decimal.NewFromFloat(0.25), rule.CondLessThan, &denomMin)
	require.NoError(t, err)
	require.NoError(t, rules.Add(r))

	features := feature.NewRegistry()
	purchase, err := feature.New("purchase", []*rule.Rule{r})
	require.NoError(t, err)
	require.NoError(t, features.Add(purchase))

	grants := &recordingGrants{}
	return NewProcessor(aggregates, rules, features, grants), grants
}

func TestProcess_EventFeedingNoAggregatesIsANoOp(t *testing.T) {
	p, grants := scamPipeline(t)

	err := p.Process(context.Background(), newEvent("page_view", props{"user_id": "u1"}))
	require.NoError(t, err)
	require.Empty(t, grants.calls)
}

func TestProcess_RevokesAtThreshold(t *testing.T) {
	p, grants := scamPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, newEvent("scam_flag", props{"user_id": "u1"})))
	require.Empty(t, grants.calls, "one flag still abides")

	require.NoError(t, p.Process(ctx, newEvent("scam_flag", props{"user_id": "u1"})))
	require.Equal(t, []grantCall{{"revoke", "u1", "message"}}, grants.calls)

	// Further failures settle again; the grant service dedupes transitions.
	require.NoError(t, p.Process(ctx, newEvent("scam_flag", props{"user_id": "u1"})))
	require.Equal(t, []grantCall{
		{"revoke", "u1", "message"},
		{"revoke", "u1", "message"},
	}, grants.calls)
}

func TestProcess_UsersAreIsolated(t *testing.T) {
	p, grants := scamPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, newEvent("scam_flag", props{"user_id": "u1"})))
	require.NoError(t, p.Process(ctx, newEvent("scam_flag", props{"user_id": "u2"})))
	require.Empty(t, grants.calls, "each user holds one flag")
}

func TestProcess_DuplicateEventUUIDDoesNotAdvanceCounts(t *testing.T) {
	p, grants := scamPipeline(t)
	ctx := context.Background()

	evt := newEvent("scam_flag", props{"user_id": "u1"})
	require.NoError(t, p.Process(ctx, evt))
	require.NoError(t, p.Process(ctx, evt))
	require.Empty(t, grants.calls, "replayed delivery counts once")
}

func TestProcess_MultiAggregateEventEvaluatesRuleOnce(t *testing.T) {
	p, grants := cardPipeline(t)
	ctx := context.Background()

	card := func(zip string) *event.Event {
		return newEvent("add_credit_card", props{"user_id": "u1", "zipcode": zip})
	}

	// Ratio is 1.0 throughout, but denom_min keeps the rule abiding until
	// the third card.
	require.NoError(t, p.Process(ctx, card("94103")))
	require.NoError(t, p.Process(ctx, card("10001")))
	require.Empty(t, grants.calls)

	// Third card: both aggregates feed the same rule, which must settle the
	// feature exactly once.
	require.NoError(t, p.Process(ctx, card("60601")))
	require.Equal(t, []grantCall{{"revoke", "u1", "purchase"}}, grants.calls)
}

func TestProcess_AggregationErrorAbortsEvent(t *testing.T) {
	aggregates := aggregate.NewStore()
	cards, err := aggregate.New("total_credit_cards", "add_credit_card", aggregate.KindCount, "")
	require.NoError(t, err)
	require.NoError(t, aggregates.Add(cards))
	zips, err := aggregate.New("credit_card_distinct_zips", "add_credit_card", aggregate.KindDistinctCount, "zipcode")
	require.NoError(t, err)
	require.NoError(t, aggregates.Add(zips))

	rules := rule.NewStore()
	r, err := rule.New("card_limit", rule.OpValue, cards, nil, decimal.NewFromInt(10), rule.CondLessThan, nil)
	require.NoError(t, err)
	require.NoError(t, rules.Add(r))

	features := feature.NewRegistry()
	purchase, err := feature.New("purchase", []*rule.Rule{r})
	require.NoError(t, err)
	require.NoError(t, features.Add(purchase))

	grants := &recordingGrants{}
	p := NewProcessor(aggregates, rules, features, grants)

	// Empty zipcode fails the second aggregate; the event is dropped with
	// the first aggregate's update standing.
	err = p.Process(context.Background(), newEvent("add_credit_card", props{"user_id": "u1", "zipcode": ""}))
	require.ErrorIs(t, err, aggregate.ErrMissingField)
	require.ErrorContains(t, err, "credit_card_distinct_zips")
	require.Empty(t, grants.calls)
	require.True(t, cards.Value("u1").Equal(decimal.NewFromInt(1)))
	require.True(t, zips.Value("u1").IsZero())
}

func TestSettle_GrantsFeatureWhoseRulesAllAbide(t *testing.T) {
	// A concurrent worker can move an aggregate between rule evaluation and
	// settlement, so settle re-derives the verdict; the grant arm only
	// fires through that window.
	p, grants := scamPipeline(t)

	message, err := p.features.ByName("message")
	require.NoError(t, err)

	p.settle("u1", []*feature.Feature{message})
	require.Equal(t, []grantCall{{"grant", "u1", "message"}}, grants.calls)
}
