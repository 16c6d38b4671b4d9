// Package providers adapts exchange kline APIs to the engine's bar model.
package providers

import (
	"context"

	"github.com/vadiminshakov/zonescan/internal/domain"
)

// BarProvider fetches historical OHLCV bars for a symbol.
// Implementations return bars in ascending, strictly increasing
// timestamp order.
type BarProvider interface {
	// GetBars fetches up to limit bars at the given interval
	// (e.g. "1m", "5m", "1h", "4h", "1d").
	GetBars(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error)
}
