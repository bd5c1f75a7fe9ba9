// Package risk caps how much a single target may forward per pass.
package risk

import "github.com/shopspring/decimal"

// Limits holds per-target ceilings. A zero ceiling disables the check.
type Limits struct {
	MaxAmountPerTarget decimal.Decimal
}

func (l Limits) Allow(qty decimal.Decimal) bool {
	if l.MaxAmountPerTarget.IsZero() {
		return true
	}
	return qty.LessThanOrEqual(l.MaxAmountPerTarget)
}
