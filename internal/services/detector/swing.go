package detector

import (
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// FindSwingPoints scans a bar series for local extrema with the given
// strength (number of bars on each side). A bar is a swing high when its
// high strictly exceeds every high within strength bars on both sides;
// symmetric on lows for swing lows. Equal extremes to the right do not
// disqualify a bar, so the first bar of a flat top (or bottom) wins and
// adjacent duplicates are not emitted. Indices without strength bars on
// both sides are skipped. Pure function of its input slice.
func FindSwingPoints(bars []domain.Bar, strength int) []domain.SwingPoint {
	if strength < 1 || len(bars) < 2*strength+1 {
		return nil
	}

	var swings []domain.SwingPoint
	for i := strength; i < len(bars)-strength; i++ {
		if isSwingHigh(bars, i, strength) {
			swings = append(swings, domain.SwingPoint{
				Index:     i,
				Timestamp: bars[i].Timestamp,
				Price:     bars[i].High,
				Kind:      domain.SwingHigh,
			})
		}
		if isSwingLow(bars, i, strength) {
			swings = append(swings, domain.SwingPoint{
				Index:     i,
				Timestamp: bars[i].Timestamp,
				Price:     bars[i].Low,
				Kind:      domain.SwingLow,
			})
		}
	}
	return swings
}

func isSwingHigh(bars []domain.Bar, i, strength int) bool {
	h := bars[i].High
	for j := i - strength; j < i; j++ {
		if !h.GreaterThan(bars[j].High) {
			return false
		}
	}
	for j := i + 1; j <= i+strength; j++ {
		if h.LessThan(bars[j].High) {
			return false
		}
	}
	return true
}

func isSwingLow(bars []domain.Bar, i, strength int) bool {
	l := bars[i].Low
	for j := i - strength; j < i; j++ {
		if !l.LessThan(bars[j].Low) {
			return false
		}
	}
	for j := i + 1; j <= i+strength; j++ {
		if l.GreaterThan(bars[j].Low) {
			return false
		}
	}
	return true
}
