package detector

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

var percent = decimal.NewFromInt(100)

// Confirmation carries the volume and impulse evidence for a validated
// zone candidate.
type Confirmation struct {
	Kind          domain.ZoneKind
	VolumeRatio   decimal.Decimal
	ImpulsePct    decimal.Decimal
	BreakoutClose decimal.Decimal
	BreakoutAt    time.Time
}

// Confirm checks that the departure from a consolidation happened on
// disproportionate volume and with a sufficiently large price move.
//
// The departure window starts at the swing bar and spans
// DepartureWindowBars bars (consolidation length when zero). The volume
// ratio compares per-bar average volume of the departure window against the
// approach, so windows of different lengths stay comparable. Rejection is
// two-stage and short-circuits: when volume fails, the impulse is not
// evaluated. Returns false on rejection.
func Confirm(bars []domain.Bar, swing domain.SwingPoint, rng domain.ConsolidationRange, cfg Config) (Confirmation, bool) {
	depLen := cfg.DepartureWindowBars
	if depLen <= 0 {
		depLen = rng.Bars()
	}

	start := swing.Index
	end := start + depLen - 1
	if end >= len(bars) {
		return Confirmation{}, false
	}

	breakout := bars[end].Close

	var kind domain.ZoneKind
	var boundary decimal.Decimal
	switch swing.Kind {
	case domain.SwingLow:
		kind = domain.ZoneDemand
		boundary = rng.RangeHigh
		if !breakout.GreaterThan(boundary) {
			return Confirmation{}, false
		}
	case domain.SwingHigh:
		kind = domain.ZoneSupply
		boundary = rng.RangeLow
		if !breakout.LessThan(boundary) {
			return Confirmation{}, false
		}
	default:
		return Confirmation{}, false
	}

	if rng.ApproachVolume.IsZero() {
		return Confirmation{}, false
	}

	departureVolume := decimal.Zero
	for i := start; i <= end; i++ {
		departureVolume = departureVolume.Add(bars[i].Volume)
	}

	avgDeparture := departureVolume.Div(decimal.NewFromInt(int64(depLen)))
	avgApproach := rng.ApproachVolume.Div(decimal.NewFromInt(int64(rng.Bars())))
	volumeRatio := avgDeparture.Div(avgApproach)

	if volumeRatio.LessThan(cfg.MinVolumeRatio) {
		return Confirmation{}, false
	}

	impulsePct := breakout.Sub(boundary).Abs().Div(boundary).Mul(percent)
	if impulsePct.LessThan(rng.SizePct().Mul(cfg.ImpulseMultiplier)) {
		return Confirmation{}, false
	}

	return Confirmation{
		Kind:          kind,
		VolumeRatio:   volumeRatio,
		ImpulsePct:    impulsePct,
		BreakoutClose: breakout,
		BreakoutAt:    bars[end].Timestamp,
	}, true
}
