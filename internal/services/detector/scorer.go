package detector

import (
	"math"

	"github.com/shopspring/decimal"
)

// Scorer turns volume and impulse evidence into a 0-100 quality score.
// Pluggable so alternative formulas can be substituted without touching
// the pipeline.
type Scorer interface {
	Score(volumeRatio, impulsePct decimal.Decimal) int
}

// WeightedScorer is the default heuristic:
//
//	score = clamp(30 + min(volume_ratio, 5)*20 + min(impulse_pct, 10)*5, 0, 100)
//
// Both inputs are clamped before weighting so a single extreme outlier
// (say a 50x volume spike) cannot saturate the score and mask a weak
// impulse, or vice versa.
type WeightedScorer struct{}

// Score implements Scorer. Deterministic pure function.
func (WeightedScorer) Score(volumeRatio, impulsePct decimal.Decimal) int {
	vr := math.Min(volumeRatio.InexactFloat64(), 5.0)
	ip := math.Min(impulsePct.InexactFloat64(), 10.0)

	score := 30 + vr*20 + ip*5
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}
