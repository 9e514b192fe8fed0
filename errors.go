package breaker

import (
	"errors"
	"fmt"
)

// ErrOpen is returned when admission is refused because the breaker is
// Open (or HalfOpen with no probe slot free). The operation did not run.
var ErrOpen = errors.New("breaker: circuit open")

// ErrHalfOpenProbeLimit is a synonym for ErrOpen returned specifically
// when refusal was due to probe saturation while HalfOpen, for callers
// that want to distinguish cooldown-rejection from probe-rejection.
// errors.Is(err, ErrOpen) still reports true for this error.
var ErrHalfOpenProbeLimit = fmt.Errorf("%w: half-open probe limit reached", ErrOpen)

// ErrConfigurationError is returned by Builder.Build when a configured
// parameter is outside its valid range.
var ErrConfigurationError = errors.New("breaker: invalid configuration")

// BreakerError wraps the outcome of a rejected or failed call. The zero
// value is not meaningful; construct via the package's internal
// admission/report paths.
type BreakerError struct {
	// Op is ErrOpen (or ErrHalfOpenProbeLimit) when admission was refused,
	// or nil when the operation ran and returned Err.
	Op error

	// Err is the user operation's error, set only when Op is nil.
	Err error
}

// Error implements error.
func (e *BreakerError) Error() string {
	if e.Op != nil {
		return e.Op.Error()
	}
	return fmt.Sprintf("breaker: operation failed: %v", e.Err)
}

// Unwrap lets errors.Is/errors.As see through to ErrOpen or the wrapped
// operation error.
func (e *BreakerError) Unwrap() error {
	if e.Op != nil {
		return e.Op
	}
	return e.Err
}

// IsOpen reports whether err denotes a rejected admission (the breaker
// was Open, or HalfOpen with no probe slot).
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

func rejectedError(probeLimit bool) error {
	if probeLimit {
		return &BreakerError{Op: ErrHalfOpenProbeLimit}
	}
	return &BreakerError{Op: ErrOpen}
}

func operationError(err error) error {
	return &BreakerError{Err: err}
}
