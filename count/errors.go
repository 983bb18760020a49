package rainflow

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Everything returned from the engine
// wraps one of these so callers can switch with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrStateViolation   = errors.New("operation invalid in current state")
	ErrLookupTable      = errors.New("lookup table inconsistent with parameters")
	ErrTransform        = errors.New("amplitude transform not initialized")
)

func errInvalidHysteresis(h float64) error {
	return fmt.Errorf("%w: hysteresis %v, want >= 0", ErrInvalidArgument, h)
}
