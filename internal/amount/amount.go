// Package amount converts human-entered token quantities into fixed-point base units.
package amount

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNegative is returned for quantities below zero.
	ErrNegative = errors.New("amount must not be negative")
	// ErrNonFinite is returned for NaN or infinite quantities.
	ErrNonFinite = errors.New("amount must be finite")
	// ErrOverflow is returned when the scaled value does not fit in a uint64.
	ErrOverflow = errors.New("amount overflows u64 base units")
	// ErrOutOfRange is returned for literals whose exponent no token amount needs.
	ErrOutOfRange = errors.New("amount exponent out of range")
)

// MaxExponent bounds the decimal exponent accepted from configuration in either direction.
const MaxExponent = 64

// maxUnitsDigits is the digit count of 10^20, the smallest power of ten above max uint64.
const maxUnitsDigits = 20

// ToBaseUnits returns round(q * 10^scale) using round-half-away-from-zero.
func ToBaseUnits(q decimal.Decimal, scale int32) (uint64, error) {
	if q.IsNegative() {
		return 0, fmt.Errorf("%s: %w", q.String(), ErrNegative)
	}
	if scale < 0 {
		return 0, fmt.Errorf("invalid scale %d", scale)
	}
	if q.IsZero() {
		return 0, nil
	}
	// value = coefficient * 10^exp, with 10^(digits-1) <= coefficient < 10^digits.
	exp := int64(q.Exponent()) + int64(scale)
	digits := int64(q.NumDigits())
	if exp+digits > maxUnitsDigits {
		return 0, fmt.Errorf("exponent %d at scale %d: %w", q.Exponent(), scale, ErrOverflow)
	}
	if exp+digits < 0 {
		// Below 0.1 base units, which rounds to zero.
		return 0, nil
	}
	units := q.Shift(scale).Round(0)
	n := units.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s at scale %d: %w", q.String(), scale, ErrOverflow)
	}
	return n.Uint64(), nil
}

// FromFloat converts a float into a decimal, rejecting NaN and infinities.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonFinite
	}
	if f < 0 {
		return decimal.Zero, fmt.Errorf("%v: %w", f, ErrNegative)
	}
	return checkExponent(decimal.NewFromFloat(f))
}

// Parse reads a decimal literal such as "1000000.0".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", ".inf", "infinity", "nan", ".nan":
		return decimal.Zero, ErrNonFinite
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: %w", s, ErrNegative)
	}
	return checkExponent(d)
}

func checkExponent(d decimal.Decimal) (decimal.Decimal, error) {
	if e := d.Exponent(); e > MaxExponent || e < -MaxExponent {
		return decimal.Zero, fmt.Errorf("exponent %d: %w", e, ErrOutOfRange)
	}
	return d, nil
}

// Quantity is a non-negative decimal read from configuration.
type Quantity struct {
	decimal.Decimal
}

// MustQuantity parses s and panics on error. Intended for tests and constants.
func MustQuantity(s string) Quantity {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return Quantity{Decimal: d}
}

// UnmarshalYAML keeps the literal text of the scalar so no float rounding happens.
func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("amount: expected scalar, got yaml kind %d", node.Kind)
	}
	d, err := Parse(node.Value)
	if err != nil {
		return err
	}
	q.Decimal = d
	return nil
}

// UnmarshalTOML accepts TOML integers, floats and strings.
func (q *Quantity) UnmarshalTOML(v any) error {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case int64:
		if val < 0 {
			return fmt.Errorf("%d: %w", val, ErrNegative)
		}
		d = decimal.NewFromInt(val)
	case float64:
		d, err = FromFloat(val)
	case string:
		d, err = Parse(val)
	default:
		return fmt.Errorf("amount: unsupported toml type %T", v)
	}
	if err != nil {
		return err
	}
	q.Decimal = d
	return nil
}

// BaseUnits converts the quantity at the given scale.
func (q Quantity) BaseUnits(scale int32) (uint64, error) {
	return ToBaseUnits(q.Decimal, scale)
}
