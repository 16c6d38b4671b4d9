// Package config loads engine configuration from a YAML file or CLI flags.
// All thresholds end up in explicit immutable structs passed into the
// pipeline; nothing is read from ambient state after startup.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/services/detector"
	"github.com/vadiminshakov/zonescan/internal/services/lifecycle"
	"github.com/vadiminshakov/zonescan/internal/services/scanner"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Platform     string
	Symbols      []string
	Interval     string
	Lookback     int
	Workers      int
	ScanSchedule string
	DBPath       string
	WalDir       string
	HTTPAddr     string

	SwingStrength         int
	MinConsolidationBars  int
	MaxConsolidationBars  int
	MinZoneSizePct        decimal.Decimal
	MaxZoneSizePct        decimal.Decimal
	MinVolumeRatio        decimal.Decimal
	ImpulseMultiplier     decimal.Decimal
	DepartureWindowBars   int
	WeakTestThreshold     int
	NearPriceTolerancePct decimal.Decimal
}

type configTmp struct {
	Platform     string   `yaml:"platform"`
	Symbols      []string `yaml:"symbols"`
	Interval     string   `yaml:"interval,omitempty"`
	Lookback     int      `yaml:"lookback,omitempty"`
	Workers      int      `yaml:"workers,omitempty"`
	ScanSchedule string   `yaml:"scan_schedule,omitempty"`
	DBPath       string   `yaml:"db_path,omitempty"`
	WalDir       string   `yaml:"wal_dir,omitempty"`
	HTTPAddr     string   `yaml:"http_addr,omitempty"`

	SwingStrength            int    `yaml:"swing_strength,omitempty"`
	MinConsolidationBars     int    `yaml:"min_consolidation_bars,omitempty"`
	MaxConsolidationBars     int    `yaml:"max_consolidation_bars,omitempty"`
	MinZoneSizePctStr        string `yaml:"min_zone_size_pct,omitempty"`
	MaxZoneSizePctStr        string `yaml:"max_zone_size_pct,omitempty"`
	MinVolumeRatioStr        string `yaml:"min_volume_ratio,omitempty"`
	ImpulseMultiplierStr     string `yaml:"impulse_multiplier,omitempty"`
	DepartureWindowBars      int    `yaml:"departure_window_bars,omitempty"`
	WeakTestThreshold        int    `yaml:"weak_test_threshold,omitempty"`
	NearPriceTolerancePctStr string `yaml:"near_price_tolerance_pct,omitempty"`
}

// Get loads the configuration from --config when provided, CLI flags otherwise.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "binance", "market data platform: binance or bybit")
	symbols := flag.String("symbols", "BTCUSDT", "comma-separated list of symbols, example: BTCUSDT,ETHUSDT")
	interval := flag.String("interval", "1h", "kline interval, example: 1h")
	lookback := flag.Int("lookback", 500, "bars fetched per symbol")
	workers := flag.Int("workers", 4, "concurrent symbol scans")
	schedule := flag.String("schedule", "@hourly", "cron schedule for periodic scans")
	dbPath := flag.String("db", "zones.db", "path to sqlite database")
	walDir := flag.String("waldir", "", "zone event WAL directory")
	httpAddr := flag.String("http", ":8080", "address of the read-only HTTP API")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := defaults()
	cfg.Platform = *platform
	cfg.Interval = *interval
	cfg.Lookback = *lookback
	cfg.Workers = *workers
	cfg.ScanSchedule = *schedule
	cfg.DBPath = *dbPath
	cfg.WalDir = *walDir
	cfg.HTTPAddr = *httpAddr

	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}

	return validate(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := defaults()
	cfg.Symbols = tmp.Symbols

	if tmp.Platform != "" {
		cfg.Platform = tmp.Platform
	}
	if tmp.Interval != "" {
		cfg.Interval = tmp.Interval
	}
	if tmp.Lookback > 0 {
		cfg.Lookback = tmp.Lookback
	}
	if tmp.Workers > 0 {
		cfg.Workers = tmp.Workers
	}
	if tmp.ScanSchedule != "" {
		cfg.ScanSchedule = tmp.ScanSchedule
	}
	if tmp.DBPath != "" {
		cfg.DBPath = tmp.DBPath
	}
	if tmp.WalDir != "" {
		cfg.WalDir = tmp.WalDir
	}
	if tmp.HTTPAddr != "" {
		cfg.HTTPAddr = tmp.HTTPAddr
	}

	if tmp.SwingStrength > 0 {
		cfg.SwingStrength = tmp.SwingStrength
	}
	if tmp.MinConsolidationBars > 0 {
		cfg.MinConsolidationBars = tmp.MinConsolidationBars
	}
	if tmp.MaxConsolidationBars > 0 {
		cfg.MaxConsolidationBars = tmp.MaxConsolidationBars
	}
	if tmp.DepartureWindowBars > 0 {
		cfg.DepartureWindowBars = tmp.DepartureWindowBars
	}
	if tmp.WeakTestThreshold > 0 {
		cfg.WeakTestThreshold = tmp.WeakTestThreshold
	}

	if cfg.MinZoneSizePct, err = decimalOr(tmp.MinZoneSizePctStr, cfg.MinZoneSizePct); err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_zone_size_pct' param in yaml config: %w", err)
	}
	if cfg.MaxZoneSizePct, err = decimalOr(tmp.MaxZoneSizePctStr, cfg.MaxZoneSizePct); err != nil {
		return Config{}, fmt.Errorf("incorrect 'max_zone_size_pct' param in yaml config: %w", err)
	}
	if cfg.MinVolumeRatio, err = decimalOr(tmp.MinVolumeRatioStr, cfg.MinVolumeRatio); err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_volume_ratio' param in yaml config: %w", err)
	}
	if cfg.ImpulseMultiplier, err = decimalOr(tmp.ImpulseMultiplierStr, cfg.ImpulseMultiplier); err != nil {
		return Config{}, fmt.Errorf("incorrect 'impulse_multiplier' param in yaml config: %w", err)
	}
	if cfg.NearPriceTolerancePct, err = decimalOr(tmp.NearPriceTolerancePctStr, cfg.NearPriceTolerancePct); err != nil {
		return Config{}, fmt.Errorf("incorrect 'near_price_tolerance_pct' param in yaml config: %w", err)
	}

	return validate(cfg)
}

func defaults() Config {
	det := detector.DefaultConfig()
	return Config{
		Platform:              "binance",
		Interval:              "1h",
		Lookback:              500,
		Workers:               4,
		ScanSchedule:          "@hourly",
		DBPath:                "zones.db",
		HTTPAddr:              ":8080",
		SwingStrength:         det.SwingStrength,
		MinConsolidationBars:  det.MinConsolidationBars,
		MaxConsolidationBars:  det.MaxConsolidationBars,
		MinZoneSizePct:        det.MinZoneSizePct,
		MaxZoneSizePct:        det.MaxZoneSizePct,
		MinVolumeRatio:        det.MinVolumeRatio,
		ImpulseMultiplier:     det.ImpulseMultiplier,
		DepartureWindowBars:   det.DepartureWindowBars,
		WeakTestThreshold:     lifecycle.DefaultConfig().WeakTestThreshold,
		NearPriceTolerancePct: decimal.NewFromInt(2),
	}
}

func validate(cfg Config) (Config, error) {
	if len(cfg.Symbols) == 0 {
		return Config{}, fmt.Errorf("at least one symbol is required")
	}
	if cfg.Platform != "binance" && cfg.Platform != "bybit" {
		return Config{}, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
	if cfg.MinConsolidationBars > cfg.MaxConsolidationBars {
		return Config{}, fmt.Errorf("min_consolidation_bars %d exceeds max_consolidation_bars %d",
			cfg.MinConsolidationBars, cfg.MaxConsolidationBars)
	}
	if cfg.MinZoneSizePct.GreaterThan(cfg.MaxZoneSizePct) {
		return Config{}, fmt.Errorf("min_zone_size_pct %s exceeds max_zone_size_pct %s",
			cfg.MinZoneSizePct, cfg.MaxZoneSizePct)
	}
	return cfg, nil
}

func decimalOr(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}

// DetectorConfig converts the loaded values into the detection config.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		SwingStrength:        c.SwingStrength,
		MinConsolidationBars: c.MinConsolidationBars,
		MaxConsolidationBars: c.MaxConsolidationBars,
		MinZoneSizePct:       c.MinZoneSizePct,
		MaxZoneSizePct:       c.MaxZoneSizePct,
		MinVolumeRatio:       c.MinVolumeRatio,
		ImpulseMultiplier:    c.ImpulseMultiplier,
		DepartureWindowBars:  c.DepartureWindowBars,
	}
}

// LifecycleConfig converts the loaded values into the lifecycle config.
func (c Config) LifecycleConfig() lifecycle.Config {
	return lifecycle.Config{WeakTestThreshold: c.WeakTestThreshold}
}

// ScannerConfig converts the loaded values into the scan orchestration config.
func (c Config) ScannerConfig() scanner.Config {
	return scanner.Config{
		Interval: c.Interval,
		Lookback: c.Lookback,
		Workers:  c.Workers,
	}
}
