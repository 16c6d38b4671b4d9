package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies a zone lifecycle transition.
type EventKind string

const (
	EventTestHeld   EventKind = "TEST_HELD"
	EventTestBroken EventKind = "TEST_BROKEN"
)

// ZoneEvent is an immutable audit record of a lifecycle transition,
// keyed by (zone id, bar timestamp). Append-only; used for replay and
// for recomputing test counts.
type ZoneEvent struct {
	ZoneID       string          `json:"zone_id"`
	BarTimestamp time.Time       `json:"bar_timestamp"`
	Kind         EventKind       `json:"kind"`
	PriceAtEvent decimal.Decimal `json:"price_at_event"`
}
