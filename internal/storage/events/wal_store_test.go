package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

func testEvent(zoneID string, hour int) domain.ZoneEvent {
	return domain.ZoneEvent{
		ZoneID:       zoneID,
		BarTimestamp: time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC),
		Kind:         domain.EventTestHeld,
		PriceAtEvent: decimal.NewFromFloat(242.5),
	}
}

func TestWALStore_AppendAndRead(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(testEvent("zone-1", 1)))
	require.NoError(t, store.Append(testEvent("zone-2", 2)))

	events, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "zone-1", events[0].ZoneID)
	require.Equal(t, "zone-2", events[1].ZoneID)
	require.Equal(t, domain.EventTestHeld, events[0].Kind)
	require.True(t, events[0].PriceAtEvent.Equal(decimal.NewFromFloat(242.5)))
}

func TestWALStore_IncrementalRead(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(testEvent("zone-1", 1)))
	checkpoint := store.CurrentIndex()

	require.NoError(t, store.Append(testEvent("zone-2", 2)))
	require.NoError(t, store.Append(testEvent("zone-3", 3)))

	events, err := store.EventsAfter(checkpoint)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "zone-2", events[0].ZoneID)
	require.Equal(t, "zone-3", events[1].ZoneID)

	events, err = store.EventsAfter(store.CurrentIndex())
	require.NoError(t, err)
	require.Empty(t, events, "nothing after the latest index")
}

func TestWALStore_RejectsEventWithoutZoneID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(domain.ZoneEvent{BarTimestamp: time.Now()})
	require.Error(t, err)
}

func TestWALStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(testEvent("zone-1", 1)))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "zone-1", events[0].ZoneID)
}
