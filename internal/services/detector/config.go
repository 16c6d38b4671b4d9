package detector

import "github.com/shopspring/decimal"

// Config holds all detection thresholds. It is passed explicitly into every
// pipeline call (never read from ambient state) so detection stays a pure
// function of bars and configuration.
type Config struct {
	// SwingStrength is the number of bars required on each side of a swing point.
	SwingStrength int
	// MinConsolidationBars and MaxConsolidationBars bound the backward search
	// for a pre-breakout range, inclusive.
	MinConsolidationBars int
	MaxConsolidationBars int
	// MinZoneSizePct and MaxZoneSizePct bound the range height relative to its
	// own low, in percent, inclusive on both ends.
	MinZoneSizePct decimal.Decimal
	MaxZoneSizePct decimal.Decimal
	// MinVolumeRatio is the minimum departure/approach volume ratio
	// (per-bar averages) for a breakout to count as institutional.
	MinVolumeRatio decimal.Decimal
	// ImpulseMultiplier scales the required breakout move: the impulse must be
	// at least SizePct * ImpulseMultiplier.
	ImpulseMultiplier decimal.Decimal
	// DepartureWindowBars fixes the departure window length; 0 means
	// "same length as the consolidation window".
	DepartureWindowBars int
}

// DefaultConfig returns the engine-wide detection defaults.
func DefaultConfig() Config {
	return Config{
		SwingStrength:        5,
		MinConsolidationBars: 3,
		MaxConsolidationBars: 10,
		MinZoneSizePct:       decimal.NewFromFloat(0.3),
		MaxZoneSizePct:       decimal.NewFromFloat(10.0),
		MinVolumeRatio:       decimal.NewFromFloat(1.2),
		ImpulseMultiplier:    decimal.NewFromInt(1),
		DepartureWindowBars:  0,
	}
}
