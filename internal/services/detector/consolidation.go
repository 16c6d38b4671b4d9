package detector

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// FindConsolidation searches backward from the bar immediately preceding the
// swing for a contiguous run of MinConsolidationBars..MaxConsolidationBars
// bars whose size (high-low relative to the run's own low, percent) falls
// within [MinZoneSizePct, MaxZoneSizePct], inclusive on both bounds.
// Shorter windows are tried first: the most recent, tightest behavior is
// preferred over longer, looser ranges. Returns false when no window
// qualifies: a rejected swing, not an error.
func FindConsolidation(bars []domain.Bar, swing domain.SwingPoint, cfg Config) (domain.ConsolidationRange, bool) {
	end := swing.Index - 1
	if end < 0 {
		return domain.ConsolidationRange{}, false
	}

	for length := cfg.MinConsolidationBars; length <= cfg.MaxConsolidationBars; length++ {
		start := end - length + 1
		if start < 0 {
			break
		}

		rng := buildRange(bars, start, end)
		sizePct := rng.SizePct()
		if sizePct.GreaterThanOrEqual(cfg.MinZoneSizePct) && sizePct.LessThanOrEqual(cfg.MaxZoneSizePct) {
			return rng, true
		}
	}
	return domain.ConsolidationRange{}, false
}

func buildRange(bars []domain.Bar, start, end int) domain.ConsolidationRange {
	low := bars[start].Low
	high := bars[start].High
	volume := decimal.Zero

	for i := start; i <= end; i++ {
		if bars[i].Low.LessThan(low) {
			low = bars[i].Low
		}
		if bars[i].High.GreaterThan(high) {
			high = bars[i].High
		}
		volume = volume.Add(bars[i].Volume)
	}

	return domain.ConsolidationRange{
		StartIndex:     start,
		EndIndex:       end,
		RangeLow:       low,
		RangeHigh:      high,
		ApproachVolume: volume,
	}
}
