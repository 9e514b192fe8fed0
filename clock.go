package breaker

import "time"

// Clock abstracts the passage of time so the FSM and Stats can be driven
// deterministically in tests. All time comparisons in the engine go through
// a Clock; production breakers use realClock, tests use testclock.Clock.
type Clock interface {
	// Now returns the current instant. Implementations must be monotonic
	// with at least millisecond resolution.
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
