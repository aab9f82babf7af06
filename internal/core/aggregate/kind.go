package aggregate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdict-lab/project-verdict/internal/core/event"
)

// Kind names an accumulation strategy.
type Kind string

const (
	// KindCount counts distinct event occurrences, deduped by event UUID.
	KindCount Kind = "count"
	// KindDistinctCount counts distinct values of a payload field.
	KindDistinctCount Kind = "distinct_count"
	// KindSum sums a numeric payload field, deduped by event UUID.
	KindSum Kind = "sum"
)

var (
	// ErrMissingField is returned when an event lacks the aggregated field
	// or carries an empty/zero value for it. The event is dropped upstream.
	ErrMissingField = errors.New("event field missing or empty")

	// ErrNonNumericField is returned when a sum field holds a value that
	// cannot be read as a number.
	ErrNonNumericField = errors.New("event field is not numeric")
)

// Accumulator folds one user's events into a running value.
// Implementations are not safe for concurrent use; the owning Aggregate
// serializes access.
type Accumulator interface {
	// Observe folds a single event in. Observing the same event UUID twice
	// must not change the value for uuid-deduped kinds.
	Observe(evt *event.Event) error

	// Value returns the current accumulated value.
	Value() decimal.Decimal
}

// KindSpec describes one accumulator kind in the registry.
type KindSpec struct {
	// RequiresField is true when the kind reads a payload field.
	// count takes no field; distinct_count and sum require one.
	RequiresField bool

	// New builds a fresh per-user accumulator.
	New func(field string) Accumulator
}

// Kinds is the registry of supported accumulator kinds.
// To add a kind: implement Accumulator and add an entry here. The update
// hot path stays a single map lookup.
var Kinds = map[Kind]KindSpec{
	KindCount: {
		RequiresField: false,
		New:           func(string) Accumulator { return &countAccumulator{uuids: make(map[uuid.UUID]struct{})} },
	},
	KindDistinctCount: {
		RequiresField: true,
		New: func(field string) Accumulator {
			return &distinctAccumulator{field: field, values: make(map[string]struct{})}
		},
	},
	KindSum: {
		RequiresField: true,
		New: func(field string) Accumulator {
			return &sumAccumulator{field: field, seen: make(map[uuid.UUID]struct{})}
		},
	},
}

// ValidKind reports whether k is a registered accumulator kind.
func ValidKind(k Kind) bool {
	_, ok := Kinds[k]
	return ok
}

// countAccumulator counts events, deduped by event UUID so retried
// deliveries are idempotent.
type countAccumulator struct {
	uuids map[uuid.UUID]struct{}
}

func (c *countAccumulator) Observe(evt *event.Event) error {
	c.uuids[evt.UUID] = struct{}{}
	return nil
}

func (c *countAccumulator) Value() decimal.Decimal {
	return decimal.NewFromInt(int64(len(c.uuids)))
}

// distinctAccumulator counts distinct values of a payload field.
type distinctAccumulator struct {
	field  string
	values map[string]struct{}
}

func (d *distinctAccumulator) Observe(evt *event.Event) error {
	v, err := fieldValue(evt, d.field)
	if err != nil {
		return err
	}
	d.values[distinctKey(v)] = struct{}{}
	return nil
}

func (d *distinctAccumulator) Value() decimal.Decimal {
	return decimal.NewFromInt(int64(len(d.values)))
}

// sumAccumulator sums a numeric payload field, deduped by event UUID.
type sumAccumulator struct {
	field string
	seen  map[uuid.UUID]struct{}
	total decimal.Decimal
}

func (s *sumAccumulator) Observe(evt *event.Event) error {
	// Dedupe before extraction: a replayed event never changes the total,
	// even if its payload is malformed.
	if _, ok := s.seen[evt.UUID]; ok {
		return nil
	}
	v, err := fieldValue(evt, s.field)
	if err != nil {
		return err
	}
	d, ok := toDecimal(v)
	if !ok {
		return fmt.Errorf("%w: field %q", ErrNonNumericField, s.field)
	}
	s.seen[evt.UUID] = struct{}{}
	s.total = s.total.Add(d)
	return nil
}

func (s *sumAccumulator) Value() decimal.Decimal {
	return s.total
}

// fieldValue extracts a payload field, treating absence and empty/zero
// values the same way: both drop the event.
func fieldValue(evt *event.Event, field string) (interface{}, error) {
	v, ok := evt.Properties.Field(field)
	if !ok || isEmpty(v) {
		return nil, fmt.Errorf("%w: field %q", ErrMissingField, field)
	}
	return v, nil
}

// isEmpty reports whether a decoded JSON value carries no signal: null,
// empty string, zero number, false, or an empty object/array.
func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case float32:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case map[string]interface{}:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	}
	return false
}

// distinctKey canonicalizes a field value for set membership. Values are
// tagged by type so the string "5" and the number 5 stay distinct.
func distinctKey(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return "n:" + strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(val)
	default:
		return fmt.Sprintf("v:%v", val)
	}
}
