package breaker

import "time"

// Policy is the capability pair deciding trip/reset from a StatsReader
// view. Custom policies are supplied as objects satisfying this two-method
// interface; no inheritance hierarchy is involved. Policies must be pure
// and side-effect-free — they are consulted on the hot path after
// outcomes.
type Policy interface {
	// ShouldTrip is consulted after each failure while Closed, and after
	// each probe failure while HalfOpen when
	// Configuration.TripOnProbeFailureUnconditionally is false.
	ShouldTrip(stats StatsReader) bool

	// ShouldReset is consulted after each success while HalfOpen.
	ShouldReset(stats StatsReader) bool
}

// DefaultPolicy trips on either an absolute run of consecutive failures or
// a window error rate over threshold once minimum throughput is met, and
// resets after enough consecutive HalfOpen successes.
type DefaultPolicy struct {
	FailureThreshold          float64
	MinThroughput             uint64
	ConsecutiveFailuresTrip   uint64
	ConsecutiveSuccessesReset uint64
}

// ShouldTrip implements Policy.
func (p DefaultPolicy) ShouldTrip(stats StatsReader) bool {
	if stats.ConsecutiveFailures() >= p.ConsecutiveFailuresTrip {
		return true
	}
	return stats.WindowCalls() >= p.MinThroughput && stats.ErrorRate() >= p.FailureThreshold
}

// ShouldReset implements Policy.
func (p DefaultPolicy) ShouldReset(stats StatsReader) bool {
	return stats.ConsecutiveSuccesses() >= p.ConsecutiveSuccessesReset
}

// TimeBasedPolicy trips on the windowed error rate alone, ignoring
// consecutive-failure counting entirely, and resets purely on a run of
// consecutive HalfOpen successes. Folded back from the original
// implementation's TimeBasedPolicy, which the distilled spec's Policy
// section left unnamed but did not exclude.
type TimeBasedPolicy struct {
	FailureThreshold          float64
	MinThroughput             uint64
	ConsecutiveSuccessesReset uint64
}

// ShouldTrip implements Policy.
func (p TimeBasedPolicy) ShouldTrip(stats StatsReader) bool {
	return stats.WindowCalls() >= p.MinThroughput && stats.ErrorRate() >= p.FailureThreshold
}

// ShouldReset implements Policy.
func (p TimeBasedPolicy) ShouldReset(stats StatsReader) bool {
	return stats.ConsecutiveSuccesses() >= p.ConsecutiveSuccessesReset
}

// ThroughputAwarePolicy uses the EMA error rate instead of the windowed
// rate, tripping only once throughput clears MinThroughputPerWindow, where
// throughput is TotalCalls divided by WindowWidth in seconds (calls per
// second, not calls per window), and resetting once the EMA error rate has decayed below a recovery
// threshold rather than counting consecutive successes. Folded back from
// the original implementation's ThroughputAwarePolicy.
type ThroughputAwarePolicy struct {
	FailureThreshold       float64
	MinThroughputPerWindow float64
	WindowWidth            time.Duration
	RecoveryThreshold      float64
}

// ShouldTrip implements Policy.
func (p ThroughputAwarePolicy) ShouldTrip(stats StatsReader) bool {
	windowSecs := p.WindowWidth.Seconds()
	if windowSecs <= 0 {
		return false
	}
	throughput := float64(stats.TotalCalls()) / windowSecs
	return stats.EMAErrorRate() >= p.FailureThreshold && throughput >= p.MinThroughputPerWindow
}

// ShouldReset implements Policy.
func (p ThroughputAwarePolicy) ShouldReset(stats StatsReader) bool {
	return stats.EMAErrorRate() <= p.RecoveryThreshold
}
