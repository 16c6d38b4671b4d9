package zones

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "zones.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	zone := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	require.NoError(t, zone.MarkTested(anchor.Add(time.Hour), 3))
	require.NoError(t, store.Upsert(ctx, zone))

	got, err := store.Get(ctx, "BTCUSDT", zone.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, zone.ID, got.ID)
	require.Equal(t, domain.ZoneDemand, got.Kind)
	require.True(t, got.Bottom.Equal(zone.Bottom))
	require.True(t, got.Top.Equal(zone.Top))
	require.True(t, got.VolumeRatio.Equal(zone.VolumeRatio))
	require.True(t, got.ImpulsePct.Equal(zone.ImpulsePct))
	require.Equal(t, zone.StrengthScore, got.StrengthScore)
	require.True(t, got.FormedAt.Equal(zone.FormedAt))
	require.Equal(t, domain.StatusTested, got.Status())
	require.Equal(t, 1, got.TestCount())
	require.True(t, got.LastEventAt().Equal(zone.LastEventAt()))

	missing, err := store.Get(ctx, "BTCUSDT", "no-such-id")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSQLiteStore_FreshZoneHasZeroLastEvent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	zone := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	require.NoError(t, store.Upsert(ctx, zone))

	got, err := store.Get(ctx, "BTCUSDT", zone.ID)
	require.NoError(t, err)
	require.True(t, got.LastEventAt().IsZero())
}

func TestSQLiteStore_UpsertRefreshesLifecycleState(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	zone := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	require.NoError(t, store.Upsert(ctx, zone))

	require.NoError(t, zone.MarkTested(anchor.Add(time.Hour), 3))
	require.NoError(t, store.Upsert(ctx, zone))
	require.NoError(t, zone.MarkBroken(anchor.Add(2*time.Hour)))
	require.NoError(t, store.Upsert(ctx, zone))

	got, err := store.Get(ctx, "BTCUSDT", zone.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusBroken, got.Status())
	require.Equal(t, 1, got.TestCount())

	active, err := store.GetActive(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestSQLiteStore_GetActiveOrderedByFormation(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	later := mkZone(t, "BTCUSDT", domain.ZoneSupply, 300, 310, anchor.Add(time.Hour))
	earlier := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	require.NoError(t, store.Upsert(ctx, later))
	require.NoError(t, store.Upsert(ctx, earlier))

	active, err := store.GetActive(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, earlier.ID, active[0].ID)
	require.Equal(t, later.ID, active[1].ID)
}

func TestSQLiteStore_GetNearPrice(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	near := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	far := mkZone(t, "BTCUSDT", domain.ZoneSupply, 300, 310, anchor.Add(time.Hour))
	require.NoError(t, store.Upsert(ctx, near))
	require.NoError(t, store.Upsert(ctx, far))

	zones, err := store.GetNearPrice(ctx, "BTCUSDT", d(248), d(2))
	require.NoError(t, err)
	require.Len(t, zones, 1)
	require.Equal(t, near.ID, zones[0].ID)
}

func TestSQLiteStore_EventsAppendOnlyAndIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	event := domain.ZoneEvent{
		ZoneID:       "zone-1",
		BarTimestamp: anchor.Add(time.Hour),
		Kind:         domain.EventTestHeld,
		PriceAtEvent: d(242.5),
	}
	require.NoError(t, store.AppendEvent(ctx, event))
	require.NoError(t, store.AppendEvent(ctx, event), "same bar replayed twice stores one row")

	later := event
	later.BarTimestamp = anchor.Add(2 * time.Hour)
	later.Kind = domain.EventTestBroken
	require.NoError(t, store.AppendEvent(ctx, later))

	history, err := store.Events(ctx, "zone-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, domain.EventTestHeld, history[0].Kind)
	require.Equal(t, domain.EventTestBroken, history[1].Kind)
	require.True(t, history[0].PriceAtEvent.Equal(d(242.5)))
	require.True(t, history[0].BarTimestamp.Equal(event.BarTimestamp))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zones.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	zone := mkZone(t, "BTCUSDT", domain.ZoneDemand, 240, 245, anchor)
	require.NoError(t, store.Upsert(ctx, zone))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "BTCUSDT", zone.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, zone.ID, got.ID)
}
