// Package detector implements the supply/demand zone detection pipeline:
// swing point search, consolidation validation, volume/impulse confirmation
// and strength scoring. Detection is a single-threaded batch computation
// over an in-memory bar slice with no I/O.
package detector

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/zonescan/internal/domain"
	"go.uber.org/zap"
)

// Detector runs the detection pipeline for one symbol at a time.
type Detector struct {
	cfg    Config
	scorer Scorer
	logger *zap.Logger
}

// New creates a detector with the given configuration. A nil scorer falls
// back to the default WeightedScorer.
func New(logger *zap.Logger, cfg Config, scorer Scorer) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = WeightedScorer{}
	}
	return &Detector{cfg: cfg, scorer: scorer, logger: logger}
}

// Detect scans the bar series for zones. Bars violating OHLCV invariants are
// skipped with a warning and the rest of the series is still processed.
// Returns ErrInsufficientData when the cleaned series is too short to
// evaluate a single swing. Candidate rejection inside the pipeline is
// silent.
func (d *Detector) Detect(symbol string, bars []domain.Bar) ([]*domain.Zone, error) {
	clean := d.sanitize(symbol, bars)

	need := 2*d.cfg.SwingStrength + 1
	if len(clean) < need || len(clean) < d.cfg.MinConsolidationBars {
		return nil, errors.Wrapf(domain.ErrInsufficientData,
			"symbol %s: %d valid bars, need at least %d", symbol, len(clean), need)
	}

	var zones []*domain.Zone
	for _, swing := range FindSwingPoints(clean, d.cfg.SwingStrength) {
		rng, ok := FindConsolidation(clean, swing, d.cfg)
		if !ok {
			continue
		}

		conf, ok := Confirm(clean, swing, rng, d.cfg)
		if !ok {
			continue
		}

		score := d.scorer.Score(conf.VolumeRatio, conf.ImpulsePct)
		zone, err := domain.NewZone(symbol, conf.Kind, rng.RangeLow, rng.RangeHigh, swing.Timestamp,
			conf.VolumeRatio, conf.ImpulsePct, score)
		if err != nil {
			return nil, errors.Wrap(err, "build zone from confirmed candidate")
		}

		d.logger.Info("zone detected",
			zap.String("symbol", symbol),
			zap.String("zone_id", zone.ID),
			zap.String("kind", string(zone.Kind)),
			zap.String("bottom", zone.Bottom.String()),
			zap.String("top", zone.Top.String()),
			zap.String("volume_ratio", conf.VolumeRatio.StringFixed(4)),
			zap.String("impulse_pct", conf.ImpulsePct.StringFixed(4)),
			zap.Int("strength_score", score))

		zones = append(zones, zone)
	}
	return zones, nil
}

// sanitize drops bars that fail OHLCV validation, keeping series order.
func (d *Detector) sanitize(symbol string, bars []domain.Bar) []domain.Bar {
	clean := make([]domain.Bar, 0, len(bars))
	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			d.logger.Warn("skipping invalid bar",
				zap.String("symbol", symbol),
				zap.Time("timestamp", bar.Timestamp),
				zap.Error(err))
			continue
		}
		clean = append(clean, bar)
	}
	return clean
}
