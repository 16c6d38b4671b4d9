package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGetYaml_FullConfig(t *testing.T) {
	path := writeConfig(t, `
platform: bybit
symbols:
  - BTCUSDT
  - ETHUSDT
interval: 4h
lookback: 1000
workers: 8
scan_schedule: "0 * * * *"
db_path: /tmp/zones.db
http_addr: ":9090"
swing_strength: 3
min_consolidation_bars: 4
max_consolidation_bars: 12
min_zone_size_pct: "0.5"
max_zone_size_pct: "8"
min_volume_ratio: "1.5"
impulse_multiplier: "1.2"
departure_window_bars: 5
weak_test_threshold: 2
near_price_tolerance_pct: "3"
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)
	require.Equal(t, "bybit", cfg.Platform)
	require.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	require.Equal(t, "4h", cfg.Interval)
	require.Equal(t, 1000, cfg.Lookback)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "0 * * * *", cfg.ScanSchedule)
	require.Equal(t, 3, cfg.SwingStrength)
	require.Equal(t, 4, cfg.MinConsolidationBars)
	require.Equal(t, 12, cfg.MaxConsolidationBars)
	require.True(t, cfg.MinZoneSizePct.Equal(decimal.NewFromFloat(0.5)))
	require.True(t, cfg.MaxZoneSizePct.Equal(decimal.NewFromInt(8)))
	require.True(t, cfg.MinVolumeRatio.Equal(decimal.NewFromFloat(1.5)))
	require.True(t, cfg.ImpulseMultiplier.Equal(decimal.NewFromFloat(1.2)))
	require.Equal(t, 5, cfg.DepartureWindowBars)
	require.Equal(t, 2, cfg.WeakTestThreshold)
	require.True(t, cfg.NearPriceTolerancePct.Equal(decimal.NewFromInt(3)))
}

func TestGetYaml_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, `
platform: binance
symbols:
  - BTCUSDT
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)
	require.Equal(t, "1h", cfg.Interval)
	require.Equal(t, 500, cfg.Lookback)
	require.Equal(t, "@hourly", cfg.ScanSchedule)
	require.Equal(t, 5, cfg.SwingStrength)
	require.Equal(t, 3, cfg.MinConsolidationBars)
	require.Equal(t, 10, cfg.MaxConsolidationBars)
	require.True(t, cfg.MinZoneSizePct.Equal(decimal.NewFromFloat(0.3)))
	require.True(t, cfg.MinVolumeRatio.Equal(decimal.NewFromFloat(1.2)))
	require.Equal(t, 3, cfg.WeakTestThreshold)
	require.True(t, cfg.NearPriceTolerancePct.Equal(decimal.NewFromInt(2)))
}

func TestGetYaml_Invalid(t *testing.T) {
	_, err := getYaml(writeConfig(t, `
platform: binance
symbols: [BTCUSDT]
min_volume_ratio: "not-a-number"
`))
	require.Error(t, err, "non-decimal threshold")

	_, err = getYaml(writeConfig(t, `
platform: binance
symbols: []
`))
	require.Error(t, err, "no symbols")

	_, err = getYaml(writeConfig(t, `
platform: kraken
symbols: [BTCUSDT]
`))
	require.Error(t, err, "unsupported platform")

	_, err = getYaml(writeConfig(t, `
platform: binance
symbols: [BTCUSDT]
min_consolidation_bars: 9
max_consolidation_bars: 4
`))
	require.Error(t, err, "inverted consolidation bounds")

	_, err = getYaml(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
