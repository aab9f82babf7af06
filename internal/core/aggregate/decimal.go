package aggregate

import "github.com/shopspring/decimal"

// toDecimal converts a decoded JSON value to a decimal. Decoded JSON
// numbers arrive as float64; NewFromFloat gives an exact decimal
// representation of that path. Numeric strings are accepted too.
func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat(float64(val)), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
