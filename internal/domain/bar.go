package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is a single OHLCV sample. Bars are immutable once ingested;
// the engine borrows read-only slices owned by the caller.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Validate checks the OHLCV invariants: low <= open,close <= high and volume >= 0.
func (b Bar) Validate() error {
	if b.Volume.IsNegative() {
		return &BarValidationError{Bar: b, Reason: "negative volume"}
	}
	if b.Open.LessThan(b.Low) || b.Open.GreaterThan(b.High) {
		return &BarValidationError{Bar: b, Reason: "open outside [low, high]"}
	}
	if b.Close.LessThan(b.Low) || b.Close.GreaterThan(b.High) {
		return &BarValidationError{Bar: b, Reason: "close outside [low, high]"}
	}
	return nil
}
