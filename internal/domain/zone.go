package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ZoneKind tells whether a zone formed under accumulation (demand) or
// distribution (supply).
type ZoneKind string

const (
	ZoneDemand ZoneKind = "DEMAND"
	ZoneSupply ZoneKind = "SUPPLY"
)

// ZoneStatus is the lifecycle state of a zone. Transitions are monotonic:
// FRESH -> TESTED -> WEAK -> BROKEN, with BROKEN absorbing. The status field
// is unexported and only the forward-moving Mark* methods can change it, so
// a backward transition cannot be expressed through the Zone API.
type ZoneStatus string

const (
	StatusFresh  ZoneStatus = "FRESH"
	StatusTested ZoneStatus = "TESTED"
	StatusWeak   ZoneStatus = "WEAK"
	StatusBroken ZoneStatus = "BROKEN"
)

func parseZoneStatus(s string) (ZoneStatus, error) {
	switch ZoneStatus(s) {
	case StatusFresh, StatusTested, StatusWeak, StatusBroken:
		return ZoneStatus(s), nil
	}
	return "", fmt.Errorf("unknown zone status %q", s)
}

// Zone is a price region where a consolidation was followed by a confirmed
// breakout. (Bottom, Top, Kind) are immutable after creation; only status,
// test count and the last event time change over a zone's life.
type Zone struct {
	ID            string
	Symbol        string
	Kind          ZoneKind
	Bottom        decimal.Decimal
	Top           decimal.Decimal
	FormedAt      time.Time
	VolumeRatio   decimal.Decimal
	ImpulsePct    decimal.Decimal
	StrengthScore int

	status      ZoneStatus
	testCount   int
	lastEventAt time.Time
}

// NewZone creates a FRESH zone produced by the detection pipeline.
// The id is a deterministic UUIDv5 of symbol, kind and anchor timestamp,
// so re-running detection over the same window yields the same identity.
func NewZone(symbol string, kind ZoneKind, bottom, top decimal.Decimal, formedAt time.Time,
	volumeRatio, impulsePct decimal.Decimal, strengthScore int) (*Zone, error) {

	if symbol == "" {
		return nil, errors.New("zone symbol is required")
	}
	if !bottom.LessThan(top) {
		return nil, errors.Errorf("zone bottom %s must be below top %s", bottom, top)
	}
	if strengthScore < 0 || strengthScore > 100 {
		return nil, errors.Errorf("strength score %d out of [0,100]", strengthScore)
	}

	return &Zone{
		ID:            ZoneID(symbol, kind, formedAt),
		Symbol:        symbol,
		Kind:          kind,
		Bottom:        bottom,
		Top:           top,
		FormedAt:      formedAt,
		VolumeRatio:   volumeRatio,
		ImpulsePct:    impulsePct,
		StrengthScore: strengthScore,
		status:        StatusFresh,
	}, nil
}

// RestoreZone rehydrates a zone from persistent storage. It validates the
// stored status value but performs no transition logic.
func RestoreZone(id, symbol string, kind ZoneKind, bottom, top decimal.Decimal, formedAt time.Time,
	volumeRatio, impulsePct decimal.Decimal, strengthScore int,
	status string, testCount int, lastEventAt time.Time) (*Zone, error) {

	st, err := parseZoneStatus(status)
	if err != nil {
		return nil, errors.Wrapf(err, "restore zone %s", id)
	}
	if testCount < 0 {
		return nil, errors.Errorf("restore zone %s: negative test count %d", id, testCount)
	}

	return &Zone{
		ID:            id,
		Symbol:        symbol,
		Kind:          kind,
		Bottom:        bottom,
		Top:           top,
		FormedAt:      formedAt,
		VolumeRatio:   volumeRatio,
		ImpulsePct:    impulsePct,
		StrengthScore: strengthScore,
		status:        st,
		testCount:     testCount,
		lastEventAt:   lastEventAt,
	}, nil
}

// ZoneID derives the stable zone identifier from symbol, kind and anchor
// timestamp. Kind is part of the name: an outside bar can anchor a demand
// and a supply zone on the same timestamp, and they must not collide.
func ZoneID(symbol string, kind ZoneKind, formedAt time.Time) string {
	name := fmt.Sprintf("%s:%s@%d", symbol, kind, formedAt.UTC().UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Status returns the current lifecycle state.
func (z *Zone) Status() ZoneStatus { return z.status }

// TestCount returns how many times price revisited the zone and held.
func (z *Zone) TestCount() int { return z.testCount }

// LastEventAt returns the timestamp of the last lifecycle event, zero if none.
func (z *Zone) LastEventAt() time.Time { return z.lastEventAt }

// IsActive reports whether the zone still participates in lifecycle updates.
func (z *Zone) IsActive() bool { return z.status != StatusBroken }

// Overlaps reports whether the bar range [low, high] intersects [Bottom, Top].
func (z *Zone) Overlaps(low, high decimal.Decimal) bool {
	return !high.LessThan(z.Bottom) && !low.GreaterThan(z.Top)
}

// MarkTested records a qualifying revisit that held. It increments the test
// count, moves FRESH to TESTED and, once the count exceeds weakThreshold,
// moves the zone to WEAK. A WEAK zone stays WEAK.
func (z *Zone) MarkTested(at time.Time, weakThreshold int) error {
	if z.status == StatusBroken {
		return errors.Wrapf(ErrInvalidTransition, "zone %s is broken", z.ID)
	}

	z.testCount++
	z.lastEventAt = at

	if z.testCount > weakThreshold {
		z.status = StatusWeak
	} else if z.status == StatusFresh {
		z.status = StatusTested
	}
	return nil
}

// MarkBroken retires the zone after a close beyond its far boundary.
// BROKEN is terminal; marking a broken zone again is a programming defect.
func (z *Zone) MarkBroken(at time.Time) error {
	if z.status == StatusBroken {
		return errors.Wrapf(ErrInvalidTransition, "zone %s is already broken", z.ID)
	}

	z.status = StatusBroken
	z.lastEventAt = at
	return nil
}
