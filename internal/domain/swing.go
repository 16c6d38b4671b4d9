package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwingKind marks a swing point as a local high or low.
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint is a local price extremum used as a candidate zone anchor.
// Created by the swing detector, never mutated, consumed once by the
// validation pipeline.
type SwingPoint struct {
	Index     int
	Timestamp time.Time
	Price     decimal.Decimal
	Kind      SwingKind
}
