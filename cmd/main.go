// Command zonescan runs the supply/demand zone detection and lifecycle
// engine. It periodically scans configured symbols for zones, tracks how
// each zone's validity evolves as new bars arrive, and serves the results
// over a read-only HTTP API.
//
// Usage:
//
//	zonescan --config config.yaml
//	zonescan --symbols BTCUSDT,ETHUSDT --interval 1h (uses CLI arguments)
//
// Optional environment variables (public kline endpoints work without them):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/vadiminshakov/zonescan/config"
	"github.com/vadiminshakov/zonescan/internal/clients"
	"github.com/vadiminshakov/zonescan/internal/services/market/providers"
	"github.com/vadiminshakov/zonescan/internal/services/scanner"
	"github.com/vadiminshakov/zonescan/internal/storage/events"
	"github.com/vadiminshakov/zonescan/internal/storage/zones"
	"github.com/vadiminshakov/zonescan/internal/web"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var provider providers.BarProvider
	switch cfg.Platform {
	case "binance":
		client := clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		provider = providers.NewBinanceBarProvider(client)
	case "bybit":
		client := clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		provider = providers.NewBybitBarProvider(client)
	default:
		logger.Fatal("unsupported platform", zap.String("platform", cfg.Platform))
	}

	store, err := zones.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open zone store", zap.Error(err))
	}
	defer store.Close()

	journal, err := events.NewWALStore(cfg.WalDir)
	if err != nil {
		logger.Fatal("failed to open zone event journal", zap.Error(err))
	}
	defer journal.Close()

	sc := scanner.New(logger, provider, store, journal,
		cfg.DetectorConfig(), cfg.LifecycleConfig(), nil, cfg.ScannerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg.HTTPAddr, store, cfg.NearPriceTolerancePct, logger)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("web server stopped", zap.Error(err))
		}
	}()

	logger.Info("starting initial scan",
		zap.Strings("symbols", cfg.Symbols),
		zap.String("interval", cfg.Interval),
		zap.String("schedule", cfg.ScanSchedule))

	if err := sc.ScanAll(ctx, cfg.Symbols); err != nil {
		logger.Error("initial scan failed", zap.Error(err))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ScanSchedule, func() {
		if err := sc.ScanAll(ctx, cfg.Symbols); err != nil {
			logger.Error("scheduled scan failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("invalid scan schedule", zap.String("schedule", cfg.ScanSchedule), zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	logger.Info("shutting down")
}
