package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ConsolidationRange is a tight pre-breakout trading range immediately
// preceding a swing point. Transient: it exists only during detection
// and is never persisted.
type ConsolidationRange struct {
	StartIndex     int
	EndIndex       int
	RangeLow       decimal.Decimal
	RangeHigh      decimal.Decimal
	ApproachVolume decimal.Decimal
}

// Bars returns the number of bars in the range.
func (r ConsolidationRange) Bars() int {
	return r.EndIndex - r.StartIndex + 1
}

// SizePct is the range height relative to its own low, in percent.
func (r ConsolidationRange) SizePct() decimal.Decimal {
	if r.RangeLow.IsZero() {
		return decimal.Zero
	}
	return r.RangeHigh.Sub(r.RangeLow).Div(r.RangeLow).Mul(hundred)
}
