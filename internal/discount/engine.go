// Package discount turns a drop's committed value into its current discount.
package discount

import (
	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Range is the configuration of a supplier list: discounts in percent,
// values in cents.
type Range struct {
	MinDiscount decimal.Decimal `json:"min_discount"`
	MaxDiscount decimal.Decimal `json:"max_discount"`
	MinValue    int64           `json:"min_value"`
	MaxValue    int64           `json:"max_value"`
}

// Validate rejects ranges that would make interpolation undefined; it runs
// when a list is created, never at evaluation time.
func (r Range) Validate() error {
	if r.MinDiscount.IsNegative() || r.MaxDiscount.GreaterThanOrEqual(hundred) || r.MinDiscount.GreaterThan(r.MaxDiscount) {
		return apperr.Validation(apperr.CodeInvalidDiscountRange, "discounts must satisfy 0 <= min <= max < 100")
	}
	// At floors to cents of a percent; a finer minimum would floor below itself.
	if !r.MinDiscount.Equal(r.MinDiscount.Truncate(2)) || !r.MaxDiscount.Equal(r.MaxDiscount.Truncate(2)) {
		return apperr.Validation(apperr.CodeInvalidDiscountRange, "discounts take at most two decimals")
	}
	if r.MinValue <= 0 || r.MaxValue <= r.MinValue {
		return apperr.Validation(apperr.CodeInvalidValueRange, "values must satisfy 0 < min < max")
	}
	return nil
}

// Progress is how far value sits between MinValue and MaxValue, clamped to [0, 1].
func (r Range) Progress(value int64) decimal.Decimal {
	span := r.MaxValue - r.MinValue
	if span <= 0 {
		// only reachable with an unvalidated range
		if value >= r.MaxValue {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	}
	p := decimal.NewFromInt(value - r.MinValue).Div(decimal.NewFromInt(span))
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}

// At returns the discount percentage for a committed value, rounded to two
// decimals. It never leaves [MinDiscount, MaxDiscount] and never decreases
// as value grows.
func (r Range) At(value int64) decimal.Decimal {
	d := r.MinDiscount.Add(r.MaxDiscount.Sub(r.MinDiscount).Mul(r.Progress(value)))
	return d.RoundFloor(2)
}

// Price applies pct to an amount in cents, rounding half up to the cent.
func Price(originalCents int64, pct decimal.Decimal) int64 {
	factor := hundred.Sub(pct).Div(hundred)
	return decimal.NewFromInt(originalCents).Mul(factor).Round(0).IntPart()
}
