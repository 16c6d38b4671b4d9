package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInsufficientData signals that a bar window is too short to evaluate.
	// Not fatal: callers treat it as "no zones detected" and log at debug level.
	ErrInsufficientData = errors.New("insufficient bars for detection")

	// ErrOutOfOrderBar signals a lifecycle update with a bar whose timestamp is
	// not strictly greater than the last processed bar for the symbol.
	// Fatal for that symbol's update call; the caller must resupply in order.
	ErrOutOfOrderBar = errors.New("bar timestamp is not after the last processed bar")

	// ErrInvalidTransition is returned when a Mark* method is called on a
	// BROKEN zone. BROKEN is terminal.
	ErrInvalidTransition = errors.New("invalid zone status transition")
)

// BarValidationError reports a bar violating the OHLCV invariants.
// The offending bar is skipped and the rest of the series is still processed.
type BarValidationError struct {
	Bar    Bar
	Reason string
}

func (e *BarValidationError) Error() string {
	return fmt.Sprintf("invalid bar at %s: %s", e.Bar.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Reason)
}
