// Package lifecycle tracks how zone validity evolves as new bars arrive.
// Each tracker owns one symbol's active zone set; bars must be applied in
// strictly increasing timestamp order.
package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/zonescan/internal/domain"
	"go.uber.org/zap"
)

// Config holds lifecycle thresholds.
type Config struct {
	// WeakTestThreshold is the test count beyond which a zone turns WEAK.
	WeakTestThreshold int
}

// DefaultConfig returns the engine-wide lifecycle defaults.
func DefaultConfig() Config {
	return Config{WeakTestThreshold: 3}
}

// Repository is the slice of zone storage the tracker writes to.
type Repository interface {
	Upsert(ctx context.Context, zone *domain.Zone) error
	AppendEvent(ctx context.Context, event domain.ZoneEvent) error
}

// EventJournal receives a copy of every lifecycle event, typically a
// WAL-backed audit log. Optional.
type EventJournal interface {
	Append(event domain.ZoneEvent) error
}

// Tracker applies lifecycle transitions for one symbol. Not safe for
// concurrent use; the engine runs at most one writer per symbol.
type Tracker struct {
	logger    *zap.Logger
	symbol    string
	cfg       Config
	repo      Repository
	journal   EventJournal
	active    map[string]*domain.Zone
	lastBarAt time.Time
}

// NewTracker creates a tracker for the symbol. journal may be nil.
func NewTracker(logger *zap.Logger, symbol string, cfg Config, repo Repository, journal EventJournal) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		logger:  logger.With(zap.String("symbol", symbol)),
		symbol:  symbol,
		cfg:     cfg,
		repo:    repo,
		journal: journal,
		active:  make(map[string]*domain.Zone),
	}
}

// Track adds zones to the active set. Broken zones and zones of another
// symbol are ignored.
func (t *Tracker) Track(zones ...*domain.Zone) {
	for _, zone := range zones {
		if zone == nil || zone.Symbol != t.symbol || !zone.IsActive() {
			continue
		}
		t.active[zone.ID] = zone
	}
}

// ActiveCount returns the size of the active zone set.
func (t *Tracker) ActiveCount() int {
	return len(t.active)
}

// Update applies one bar to every tracked zone, in priority order:
// breach first, then test-and-hold, else no change. Returns the emitted
// events. A bar whose timestamp is not strictly after the previous one
// fails with ErrOutOfOrderBar; a bar violating OHLCV invariants fails
// with a BarValidationError and changes nothing. The clock advances only
// after every zone applied cleanly, so a bar that failed on a storage
// error can be resubmitted; the per-zone cutoff keeps the retry from
// double-counting zones that were already recorded.
func (t *Tracker) Update(ctx context.Context, bar domain.Bar) ([]domain.ZoneEvent, error) {
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	if !t.lastBarAt.IsZero() && !bar.Timestamp.After(t.lastBarAt) {
		return nil, errors.Wrapf(domain.ErrOutOfOrderBar,
			"symbol %s: bar at %s, last processed %s", t.symbol, bar.Timestamp, t.lastBarAt)
	}

	var emitted []domain.ZoneEvent
	for _, zone := range t.zonesInOrder() {
		// bars up to and including the last recorded activity for a zone
		// were already applied; skipping them keeps replays idempotent
		cutoff := zone.FormedAt
		if zone.LastEventAt().After(cutoff) {
			cutoff = zone.LastEventAt()
		}
		if !bar.Timestamp.After(cutoff) {
			continue
		}

		event, err := t.apply(ctx, zone, bar)
		if err != nil {
			return emitted, err
		}
		if event != nil {
			emitted = append(emitted, *event)
		}
	}

	t.lastBarAt = bar.Timestamp
	return emitted, nil
}

func (t *Tracker) apply(ctx context.Context, zone *domain.Zone, bar domain.Bar) (*domain.ZoneEvent, error) {
	breached := (zone.Kind == domain.ZoneDemand && bar.Close.LessThan(zone.Bottom)) ||
		(zone.Kind == domain.ZoneSupply && bar.Close.GreaterThan(zone.Top))

	switch {
	case breached:
		// a close beyond the far boundary breaks the zone even when the
		// bar gapped through without overlapping [bottom, top]
		if err := zone.MarkBroken(bar.Timestamp); err != nil {
			return nil, err
		}
		delete(t.active, zone.ID)

		t.logger.Info("zone broken",
			zap.String("zone_id", zone.ID),
			zap.String("close", bar.Close.String()),
			zap.Time("bar", bar.Timestamp))

		return t.record(ctx, zone, bar, domain.EventTestBroken)

	case zone.Overlaps(bar.Low, bar.High):
		prev := zone.Status()
		if err := zone.MarkTested(bar.Timestamp, t.cfg.WeakTestThreshold); err != nil {
			return nil, err
		}

		if zone.Status() != prev {
			t.logger.Info("zone status changed",
				zap.String("zone_id", zone.ID),
				zap.String("from", string(prev)),
				zap.String("to", string(zone.Status())),
				zap.Int("test_count", zone.TestCount()))
		}

		return t.record(ctx, zone, bar, domain.EventTestHeld)
	}

	return nil, nil
}

func (t *Tracker) record(ctx context.Context, zone *domain.Zone, bar domain.Bar, kind domain.EventKind) (*domain.ZoneEvent, error) {
	event := domain.ZoneEvent{
		ZoneID:       zone.ID,
		BarTimestamp: bar.Timestamp,
		Kind:         kind,
		PriceAtEvent: bar.Close,
	}

	if err := t.repo.Upsert(ctx, zone); err != nil {
		return nil, errors.Wrapf(err, "persist zone %s", zone.ID)
	}
	if err := t.repo.AppendEvent(ctx, event); err != nil {
		return nil, errors.Wrapf(err, "persist event for zone %s", zone.ID)
	}
	if t.journal != nil {
		if err := t.journal.Append(event); err != nil {
			return nil, errors.Wrapf(err, "journal event for zone %s", zone.ID)
		}
	}
	return &event, nil
}

// zonesInOrder returns active zones sorted by id so event emission order
// is stable across runs.
func (t *Tracker) zonesInOrder() []*domain.Zone {
	out := make([]*domain.Zone, 0, len(t.active))
	for _, zone := range t.active {
		out = append(out, zone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
