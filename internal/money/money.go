package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every stored amount carries.
const Scale = 2

var (
	// ErrInvalidFormat occurs when an input cannot be coerced to a finite number.
	ErrInvalidFormat = errors.New("invalid amount format")

	// ErrNotPositive occurs when an operation requires an amount greater than zero.
	ErrNotPositive = errors.New("amount must be positive")
)

// Amount is a fixed-precision monetary value normalized to two decimal
// places. The zero value is 0.00.
type Amount struct {
	dec decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Parse normalizes an externally supplied value into an Amount. It accepts
// native numeric types, json.Number and numeric strings, rounding the result
// half away from zero to two decimal places. Positivity is a separate check
// applied by callers via IsPositive.
func Parse(raw any) (Amount, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidFormat, v)
		}
		d = parsed
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidFormat, v.String())
		}
		d = parsed
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Amount{}, fmt.Errorf("%w: non-finite number", ErrInvalidFormat)
		}
		d = decimal.NewFromFloat(v)
	case float32:
		return Parse(float64(v))
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return Amount{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidFormat, raw)
	}
	return Amount{dec: d.Round(Scale)}, nil
}

// MustParse is a test helper that panics on malformed input.
func MustParse(raw any) Amount {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b rounded to two decimal places.
func (a Amount) Add(b Amount) Amount {
	return Amount{dec: a.dec.Add(b.dec).Round(Scale)}
}

// Sub returns a - b rounded to two decimal places.
func (a Amount) Sub(b Amount) Amount {
	return Amount{dec: a.dec.Sub(b.dec).Round(Scale)}
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.dec.LessThan(b.dec)
}

// Equal reports whether two amounts represent the same value.
func (a Amount) Equal(b Amount) bool {
	return a.dec.Equal(b.dec)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.dec.IsPositive()
}

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool {
	return a.dec.IsNegative()
}

// String renders the amount with exactly two decimal places, e.g. "50.00".
func (a Amount) String() string {
	return a.dec.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a fixed two-decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, data)
	}
	a.dec = d.Round(Scale)
	return nil
}
