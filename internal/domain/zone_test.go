package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestZone(t *testing.T) *Zone {
	t.Helper()
	zone, err := NewZone("BTCUSDT", ZoneDemand,
		decimal.NewFromInt(240), decimal.NewFromInt(245),
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		decimal.NewFromFloat(1.6), decimal.NewFromFloat(4.08), 82)
	require.NoError(t, err)
	return zone
}

func TestNewZone_Validation(t *testing.T) {
	_, err := NewZone("", ZoneDemand, decimal.NewFromInt(1), decimal.NewFromInt(2), time.Now(), decimal.Zero, decimal.Zero, 50)
	require.Error(t, err, "empty symbol must be rejected")

	_, err = NewZone("BTCUSDT", ZoneDemand, decimal.NewFromInt(2), decimal.NewFromInt(1), time.Now(), decimal.Zero, decimal.Zero, 50)
	require.Error(t, err, "bottom >= top must be rejected")

	_, err = NewZone("BTCUSDT", ZoneDemand, decimal.NewFromInt(1), decimal.NewFromInt(2), time.Now(), decimal.Zero, decimal.Zero, 101)
	require.Error(t, err, "score above 100 must be rejected")
}

func TestZoneID_Deterministic(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, ZoneID("BTCUSDT", ZoneDemand, at), ZoneID("BTCUSDT", ZoneDemand, at))
	require.NotEqual(t, ZoneID("BTCUSDT", ZoneDemand, at), ZoneID("ETHUSDT", ZoneDemand, at))
	require.NotEqual(t, ZoneID("BTCUSDT", ZoneDemand, at), ZoneID("BTCUSDT", ZoneDemand, at.Add(time.Hour)))
	require.NotEqual(t, ZoneID("BTCUSDT", ZoneDemand, at), ZoneID("BTCUSDT", ZoneSupply, at),
		"opposite kinds anchored on the same bar must not collide")
}

func TestNewZone_OppositeKindsOnSameBarGetDistinctIDs(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	demand, err := NewZone("BTCUSDT", ZoneDemand, decimal.NewFromInt(240), decimal.NewFromInt(245),
		at, decimal.NewFromFloat(1.6), decimal.NewFromFloat(4.0), 82)
	require.NoError(t, err)

	supply, err := NewZone("BTCUSDT", ZoneSupply, decimal.NewFromInt(250), decimal.NewFromInt(255),
		at, decimal.NewFromFloat(1.4), decimal.NewFromFloat(3.0), 73)
	require.NoError(t, err)

	require.NotEqual(t, demand.ID, supply.ID)
}

func TestZone_LifecycleIsMonotonic(t *testing.T) {
	zone := newTestZone(t)
	require.Equal(t, StatusFresh, zone.Status())

	now := time.Now()

	require.NoError(t, zone.MarkTested(now, 3))
	require.Equal(t, StatusTested, zone.Status())
	require.Equal(t, 1, zone.TestCount())
	require.Equal(t, now, zone.LastEventAt())

	require.NoError(t, zone.MarkTested(now.Add(time.Hour), 3))
	require.NoError(t, zone.MarkTested(now.Add(2*time.Hour), 3))
	require.Equal(t, StatusTested, zone.Status(), "threshold not yet exceeded")
	require.Equal(t, 3, zone.TestCount())

	require.NoError(t, zone.MarkTested(now.Add(3*time.Hour), 3))
	require.Equal(t, StatusWeak, zone.Status(), "fourth test exceeds threshold of 3")

	require.NoError(t, zone.MarkTested(now.Add(4*time.Hour), 3))
	require.Equal(t, StatusWeak, zone.Status(), "weak zones stay weak")

	require.NoError(t, zone.MarkBroken(now.Add(5*time.Hour)))
	require.Equal(t, StatusBroken, zone.Status())
	require.False(t, zone.IsActive())
}

func TestZone_BrokenIsAbsorbing(t *testing.T) {
	zone := newTestZone(t)
	require.NoError(t, zone.MarkBroken(time.Now()))

	err := zone.MarkTested(time.Now(), 3)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, 0, zone.TestCount(), "test count must not change on rejected transition")

	err = zone.MarkBroken(time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StatusBroken, zone.Status())
}

func TestZone_BreakDoesNotTouchTestCount(t *testing.T) {
	zone := newTestZone(t)
	require.NoError(t, zone.MarkTested(time.Now(), 3))
	require.NoError(t, zone.MarkBroken(time.Now()))
	require.Equal(t, 1, zone.TestCount())
}

func TestZone_Overlaps(t *testing.T) {
	zone := newTestZone(t) // [240, 245]

	require.True(t, zone.Overlaps(decimal.NewFromInt(241), decimal.NewFromInt(243)), "bar inside zone")
	require.True(t, zone.Overlaps(decimal.NewFromInt(238), decimal.NewFromInt(241)), "bar crossing bottom")
	require.True(t, zone.Overlaps(decimal.NewFromInt(245), decimal.NewFromInt(250)), "bar touching top")
	require.False(t, zone.Overlaps(decimal.NewFromInt(246), decimal.NewFromInt(250)), "bar above zone")
	require.False(t, zone.Overlaps(decimal.NewFromInt(230), decimal.NewFromInt(239)), "bar below zone")
}

func TestRestoreZone(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	zone, err := RestoreZone("id-1", "BTCUSDT", ZoneSupply,
		decimal.NewFromInt(300), decimal.NewFromInt(310), at,
		decimal.NewFromFloat(2.1), decimal.NewFromFloat(5.5), 90,
		"TESTED", 2, at.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, StatusTested, zone.Status())
	require.Equal(t, 2, zone.TestCount())

	_, err = RestoreZone("id-2", "BTCUSDT", ZoneSupply,
		decimal.NewFromInt(300), decimal.NewFromInt(310), at,
		decimal.Zero, decimal.Zero, 50, "EXPIRED", 0, time.Time{})
	require.Error(t, err, "unknown status must be rejected")

	_, err = RestoreZone("id-3", "BTCUSDT", ZoneSupply,
		decimal.NewFromInt(300), decimal.NewFromInt(310), at,
		decimal.Zero, decimal.Zero, 50, "FRESH", -1, time.Time{})
	require.Error(t, err, "negative test count must be rejected")
}

func TestBar_Validate(t *testing.T) {
	valid := Bar{
		Timestamp: time.Now(),
		Open:      decimal.NewFromInt(10),
		High:      decimal.NewFromInt(12),
		Low:       decimal.NewFromInt(9),
		Close:     decimal.NewFromInt(11),
		Volume:    decimal.NewFromInt(100),
	}
	require.NoError(t, valid.Validate())

	badOpen := valid
	badOpen.Open = decimal.NewFromInt(13)
	require.Error(t, badOpen.Validate())

	badClose := valid
	badClose.Close = decimal.NewFromInt(8)
	require.Error(t, badClose.Validate())

	badVolume := valid
	badVolume.Volume = decimal.NewFromInt(-1)
	require.Error(t, badVolume.Validate())

	var barErr *BarValidationError
	require.ErrorAs(t, badVolume.Validate(), &barErr)
	require.Contains(t, barErr.Error(), "negative volume")
}

func TestConsolidationRange_SizePct(t *testing.T) {
	rng := ConsolidationRange{
		StartIndex: 1,
		EndIndex:   5,
		RangeLow:   decimal.NewFromInt(240),
		RangeHigh:  decimal.NewFromInt(245),
	}
	require.Equal(t, 5, rng.Bars())

	// (245-240)/240*100
	want := decimal.NewFromInt(5).Div(decimal.NewFromInt(240)).Mul(decimal.NewFromInt(100))
	require.True(t, rng.SizePct().Equal(want))
}
