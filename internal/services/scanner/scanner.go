// Package scanner orchestrates multi-symbol zone scans: fetch bars,
// detect new zones, replay lifecycle updates. Symbols are independent,
// so scans run on a bounded worker pool with no shared mutable state
// across symbols.
package scanner

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/zonescan/internal/domain"
	"github.com/vadiminshakov/zonescan/internal/services/detector"
	"github.com/vadiminshakov/zonescan/internal/services/lifecycle"
	"github.com/vadiminshakov/zonescan/internal/services/market/indicators"
	"github.com/vadiminshakov/zonescan/internal/services/market/providers"
	"github.com/vadiminshakov/zonescan/internal/storage/zones"
	"github.com/vadiminshakov/zonescan/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const indicatorPeriod = 14

// Config holds scan orchestration settings.
type Config struct {
	// Interval is the kline interval requested from the provider.
	Interval string
	// Lookback is how many bars to fetch per symbol.
	Lookback int
	// Workers bounds the number of symbols scanned concurrently.
	Workers int
}

// Scanner runs the detection and lifecycle pipeline over many symbols.
type Scanner struct {
	logger       *zap.Logger
	provider     providers.BarProvider
	repo         zones.Repository
	journal      lifecycle.EventJournal
	det          *detector.Detector
	lifecycleCfg lifecycle.Config
	cfg          Config
	retry        *retrier.Retrier
}

// New creates a scanner. journal may be nil; a nil scorer inside the
// detector config path falls back to the default.
func New(logger *zap.Logger, provider providers.BarProvider, repo zones.Repository,
	journal lifecycle.EventJournal, detectorCfg detector.Config, lifecycleCfg lifecycle.Config,
	scorer detector.Scorer, cfg Config) *Scanner {

	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &Scanner{
		logger:       logger,
		provider:     provider,
		repo:         repo,
		journal:      journal,
		det:          detector.New(logger, detectorCfg, scorer),
		lifecycleCfg: lifecycleCfg,
		cfg:          cfg,
		retry:        retrier.New(retrier.WithMaxRetries(3)),
	}
}

// ScanAll scans every symbol on the worker pool. A failing symbol is
// logged and does not abort the others; cancelling the context stops
// scheduling further symbols.
func (s *Scanner) ScanAll(ctx context.Context, symbols []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.ScanSymbol(ctx, symbol); err != nil {
				s.logger.Error("symbol scan failed", zap.String("symbol", symbol), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// ScanSymbol runs one full scan for a single symbol: fetch, detect,
// persist new zones, replay lifecycle over the fetched window.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) error {
	bars, err := retrier.DoWithData(s.retry, ctx, func(ctx context.Context) ([]domain.Bar, error) {
		return s.provider.GetBars(ctx, symbol, s.cfg.Interval, s.cfg.Lookback)
	})
	if err != nil {
		return errors.Wrapf(err, "fetch bars for %s", symbol)
	}

	detected, err := s.det.Detect(symbol, bars)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			s.logger.Debug("no zones detected for this window", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		return errors.Wrapf(err, "detect zones for %s", symbol)
	}

	fresh, err := s.persistNew(ctx, symbol, bars, detected)
	if err != nil {
		return err
	}

	active, err := s.repo.GetActive(ctx, symbol)
	if err != nil {
		return errors.Wrapf(err, "load active zones for %s", symbol)
	}

	tracker := lifecycle.NewTracker(s.logger, symbol, s.lifecycleCfg, s.repo, s.journal)
	tracker.Track(active...)

	var eventCount int
	for _, bar := range bars {
		events, err := tracker.Update(ctx, bar)
		if err != nil {
			var barErr *domain.BarValidationError
			if errors.As(err, &barErr) {
				s.logger.Warn("skipping invalid bar during lifecycle replay",
					zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			// out-of-order bars are fatal for this symbol only
			return errors.Wrapf(err, "lifecycle update for %s", symbol)
		}
		eventCount += len(events)
	}

	s.logger.Info("symbol scan complete",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("new_zones", fresh),
		zap.Int("lifecycle_events", eventCount),
		zap.Int("active_zones", tracker.ActiveCount()))
	return nil
}

// persistNew upserts zones not yet known to the repository and logs the
// indicator context at formation. Re-detected zones keep their stored
// lifecycle state untouched.
func (s *Scanner) persistNew(ctx context.Context, symbol string, bars []domain.Bar, detected []*domain.Zone) (int, error) {
	var fresh int
	for _, zone := range detected {
		existing, err := s.repo.Get(ctx, symbol, zone.ID)
		if err != nil {
			return fresh, errors.Wrapf(err, "look up zone %s", zone.ID)
		}
		if existing != nil {
			continue
		}

		if err := s.repo.Upsert(ctx, zone); err != nil {
			return fresh, errors.Wrapf(err, "persist new zone %s", zone.ID)
		}
		fresh++

		s.logFormationContext(symbol, bars, zone)
	}
	return fresh, nil
}

func (s *Scanner) logFormationContext(symbol string, bars []domain.Bar, zone *domain.Zone) {
	idx := -1
	for i, bar := range bars {
		if bar.Timestamp.Equal(zone.FormedAt) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	octx, err := indicators.AtFormation(bars, idx, indicatorPeriod)
	if err != nil {
		s.logger.Debug("formation context unavailable",
			zap.String("symbol", symbol), zap.String("zone_id", zone.ID), zap.Error(err))
		return
	}

	s.logger.Info("zone formation context",
		zap.String("symbol", symbol),
		zap.String("zone_id", zone.ID),
		zap.String("rsi", octx.RSI.StringFixed(2)),
		zap.String("atr", octx.ATR.StringFixed(4)))
}
