package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value using exact decimal arithmetic.
type Money = decimal.Decimal

var (
	// Zero is the additive identity for Money.
	Zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// NewMoney builds a Money value from an integer amount of major units.
func NewMoney(units int64) Money {
	return decimal.NewFromInt(units)
}

// ParseMoney parses a decimal string such as "1200" or "19.95".
func ParseMoney(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Zero, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	m, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("%w: parse amount %q: %v", ErrInvalidInput, value, err)
	}
	return m, nil
}

// MustParseMoney behaves like ParseMoney but panics on error. Intended for constants and tests.
func MustParseMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// percentFactor turns a percentage into a multiplier, e.g. 10 -> 0.90 when sign is -1.
func percentFactor(pct Money, sign int64) Money {
	if pct.IsNegative() {
		pct = Zero
	}
	delta := pct.Div(hundred)
	if sign < 0 {
		if delta.GreaterThan(one) {
			delta = one
		}
		return one.Sub(delta)
	}
	return one.Add(delta)
}
