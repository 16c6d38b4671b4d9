// Package zones persists detected zones and their lifecycle events.
// No zone business logic lives here; stores are pure storage.
package zones

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// Repository is the storage contract consumed by the detection pipeline,
// the lifecycle tracker and the read-only web surface.
type Repository interface {
	// Upsert inserts a zone or updates its mutable fields (status,
	// test count, last event time). Calls for one (symbol, id) pair are
	// serialized by the implementation.
	Upsert(ctx context.Context, zone *domain.Zone) error
	// Get returns the zone with the given id for a symbol, nil when absent.
	Get(ctx context.Context, symbol, id string) (*domain.Zone, error)
	// GetActive returns all non-BROKEN zones for a symbol.
	GetActive(ctx context.Context, symbol string) ([]*domain.Zone, error)
	// GetNearPrice returns active zones whose [bottom, top] intersects the
	// band price*(1 +/- tolerancePct/100).
	GetNearPrice(ctx context.Context, symbol string, price, tolerancePct decimal.Decimal) ([]*domain.Zone, error)
	// AppendEvent stores a lifecycle event. Append-only and idempotent per
	// (zone id, bar timestamp).
	AppendEvent(ctx context.Context, event domain.ZoneEvent) error
	// Events returns the event history of a zone in bar-timestamp order.
	Events(ctx context.Context, zoneID string) ([]domain.ZoneEvent, error)
}

var hundred = decimal.NewFromInt(100)

// nearBand computes the [low, high] price band for GetNearPrice queries.
func nearBand(price, tolerancePct decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	delta := price.Mul(tolerancePct).Div(hundred)
	return price.Sub(delta), price.Add(delta)
}
