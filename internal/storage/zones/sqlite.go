package zones

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable Repository: one row per zone keyed
// (symbol, id), one append-only row per event keyed (zone_id, bar_timestamp).
// A single writer lock serializes upserts, which also satisfies the
// per-symbol serialization requirement.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode lets dashboards read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS zones (
			id             TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			kind           TEXT NOT NULL,
			bottom         TEXT NOT NULL,
			top            TEXT NOT NULL,
			formed_at      INTEGER NOT NULL,
			volume_ratio   TEXT NOT NULL,
			impulse_pct    TEXT NOT NULL,
			strength_score INTEGER NOT NULL,
			status         TEXT NOT NULL,
			test_count     INTEGER NOT NULL,
			last_event_at  INTEGER NOT NULL,
			PRIMARY KEY (symbol, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_zones_symbol_status ON zones(symbol, status)`,

		`CREATE TABLE IF NOT EXISTS zone_events (
			zone_id       TEXT NOT NULL,
			bar_timestamp INTEGER NOT NULL,
			kind          TEXT NOT NULL,
			price         TEXT NOT NULL,
			PRIMARY KEY (zone_id, bar_timestamp)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "exec migration %.40q", stmt)
		}
	}
	return nil
}

// Upsert implements Repository. Immutable fields are written once; a
// conflicting insert only refreshes the mutable lifecycle columns.
func (s *SQLiteStore) Upsert(ctx context.Context, zone *domain.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO zones
		(id, symbol, kind, bottom, top, formed_at, volume_ratio, impulse_pct, strength_score, status, test_count, last_event_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, id) DO UPDATE SET
			status = excluded.status,
			test_count = excluded.test_count,
			last_event_at = excluded.last_event_at`,
		zone.ID, zone.Symbol, string(zone.Kind),
		zone.Bottom.String(), zone.Top.String(), zone.FormedAt.UTC().UnixNano(),
		zone.VolumeRatio.String(), zone.ImpulsePct.String(), zone.StrengthScore,
		string(zone.Status()), zone.TestCount(), unixOrZero(zone.LastEventAt()),
	)
	return errors.Wrapf(err, "upsert zone %s", zone.ID)
}

// Get implements Repository.
func (s *SQLiteStore) Get(ctx context.Context, symbol, id string) (*domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, kind, bottom, top, formed_at,
		volume_ratio, impulse_pct, strength_score, status, test_count, last_event_at
		FROM zones WHERE symbol = ? AND id = ?`, symbol, id)
	if err != nil {
		return nil, errors.Wrapf(err, "query zone %s", id)
	}
	defer rows.Close()

	zones, err := scanZones(rows)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}
	return zones[0], nil
}

// GetActive implements Repository.
func (s *SQLiteStore) GetActive(ctx context.Context, symbol string) ([]*domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, kind, bottom, top, formed_at,
		volume_ratio, impulse_pct, strength_score, status, test_count, last_event_at
		FROM zones WHERE symbol = ? AND status != ? ORDER BY formed_at, id`,
		symbol, string(domain.StatusBroken))
	if err != nil {
		return nil, errors.Wrapf(err, "query active zones for %s", symbol)
	}
	defer rows.Close()

	return scanZones(rows)
}

// GetNearPrice implements Repository. Prices are stored as decimal strings,
// so band filtering happens in Go rather than in SQL.
func (s *SQLiteStore) GetNearPrice(ctx context.Context, symbol string, price, tolerancePct decimal.Decimal) ([]*domain.Zone, error) {
	active, err := s.GetActive(ctx, symbol)
	if err != nil {
		return nil, err
	}

	low, high := nearBand(price, tolerancePct)
	out := active[:0]
	for _, zone := range active {
		if zone.Overlaps(low, high) {
			out = append(out, zone)
		}
	}
	return out, nil
}

// AppendEvent implements Repository. Replaying the same bar is a no-op.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event domain.ZoneEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO zone_events (zone_id, bar_timestamp, kind, price)
		VALUES (?,?,?,?) ON CONFLICT(zone_id, bar_timestamp) DO NOTHING`,
		event.ZoneID, event.BarTimestamp.UTC().UnixNano(), string(event.Kind), event.PriceAtEvent.String())
	return errors.Wrapf(err, "append event for zone %s", event.ZoneID)
}

// Events implements Repository.
func (s *SQLiteStore) Events(ctx context.Context, zoneID string) ([]domain.ZoneEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT zone_id, bar_timestamp, kind, price
		FROM zone_events WHERE zone_id = ? ORDER BY bar_timestamp`, zoneID)
	if err != nil {
		return nil, errors.Wrapf(err, "query events for zone %s", zoneID)
	}
	defer rows.Close()

	var out []domain.ZoneEvent
	for rows.Next() {
		var (
			id, kind, price string
			ts              int64
		)
		if err := rows.Scan(&id, &ts, &kind, &price); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}
		priceDec, err := decimal.NewFromString(price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse event price %q", price)
		}
		out = append(out, domain.ZoneEvent{
			ZoneID:       id,
			BarTimestamp: time.Unix(0, ts).UTC(),
			Kind:         domain.EventKind(kind),
			PriceAtEvent: priceDec,
		})
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanZones(rows *sql.Rows) ([]*domain.Zone, error) {
	var out []*domain.Zone
	for rows.Next() {
		var (
			id, symbol, kind, bottom, top, volumeRatio, impulsePct, status string
			formedAt, lastEventAt                                          int64
			score, testCount                                               int
		)
		if err := rows.Scan(&id, &symbol, &kind, &bottom, &top, &formedAt,
			&volumeRatio, &impulsePct, &score, &status, &testCount, &lastEventAt); err != nil {
			return nil, errors.Wrap(err, "scan zone row")
		}

		bottomDec, err := decimal.NewFromString(bottom)
		if err != nil {
			return nil, errors.Wrapf(err, "parse bottom %q", bottom)
		}
		topDec, err := decimal.NewFromString(top)
		if err != nil {
			return nil, errors.Wrapf(err, "parse top %q", top)
		}
		vrDec, err := decimal.NewFromString(volumeRatio)
		if err != nil {
			return nil, errors.Wrapf(err, "parse volume ratio %q", volumeRatio)
		}
		ipDec, err := decimal.NewFromString(impulsePct)
		if err != nil {
			return nil, errors.Wrapf(err, "parse impulse pct %q", impulsePct)
		}

		zone, err := domain.RestoreZone(id, symbol, domain.ZoneKind(kind), bottomDec, topDec,
			time.Unix(0, formedAt).UTC(), vrDec, ipDec, score, status, testCount, timeOrZero(lastEventAt))
		if err != nil {
			return nil, err
		}
		out = append(out, zone)
	}
	return out, rows.Err()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func timeOrZero(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
