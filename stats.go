package breaker

import (
	"math"
	"sync/atomic"
	"time"
)

// StatsReader is the read-only view of Stats exposed to a Policy. Policies
// must be pure and side-effect-free, so they only ever see accessors, never
// the record/reset methods.
type StatsReader interface {
	ConsecutiveFailures() uint64
	ConsecutiveSuccesses() uint64
	TotalCalls() uint64
	TotalFailures() uint64
	WindowCalls() uint64
	WindowFailures() uint64
	ErrorRate() float64
	EMAErrorRate() float64
}

// Stats is the failure/success accounting subsystem feeding Policy. Every
// counter is updated with unsynchronized atomic read-modify-write; slight
// skew between fields (e.g. totalCalls observed before the matching
// totalFailures) is tolerated, since Policy reads are advisory and every
// failure re-evaluates the trip condition.
type Stats struct {
	consecutiveFailures  atomic.Uint64
	consecutiveSuccesses atomic.Uint64
	totalCalls           atomic.Uint64
	totalFailures        atomic.Uint64

	emaBits atomic.Uint64
	alpha   float64

	windowWidth     time.Duration
	windowStartedAt atomic.Int64
	windowCalls     atomic.Uint64
	windowFailures  atomic.Uint64
	minThroughput   uint64

	clock Clock
}

func newStats(alpha float64, windowWidth time.Duration, minThroughput uint64, clock Clock) *Stats {
	s := &Stats{
		alpha:         alpha,
		windowWidth:   windowWidth,
		minThroughput: minThroughput,
		clock:         clock,
	}
	s.windowStartedAt.Store(clock.Now().UnixNano())
	return s
}

// RecordSuccess atomically accounts for a successful call.
func (s *Stats) RecordSuccess() {
	s.rollWindowIfNeeded()
	s.totalCalls.Add(1)
	s.consecutiveSuccesses.Add(1)
	s.consecutiveFailures.Store(0)
	s.updateEMA(0)
	s.windowCalls.Add(1)
}

// RecordFailure atomically accounts for a failed call.
func (s *Stats) RecordFailure() {
	s.rollWindowIfNeeded()
	s.totalCalls.Add(1)
	s.totalFailures.Add(1)
	s.consecutiveFailures.Add(1)
	s.consecutiveSuccesses.Store(0)
	s.updateEMA(1)
	s.windowCalls.Add(1)
	s.windowFailures.Add(1)
}

// Reset zeroes all counters and starts a fresh window, as happens on
// entering Closed (invariant 6).
func (s *Stats) Reset() {
	s.consecutiveFailures.Store(0)
	s.consecutiveSuccesses.Store(0)
	s.totalCalls.Store(0)
	s.totalFailures.Store(0)
	s.emaBits.Store(0)
	s.windowCalls.Store(0)
	s.windowFailures.Store(0)
	s.windowStartedAt.Store(s.clock.Now().UnixNano())
}

// ResetConsecutive zeroes only the consecutive counters, as happens on
// entering HalfOpen (invariant 7) without discarding window/EMA history.
func (s *Stats) ResetConsecutive() {
	s.consecutiveFailures.Store(0)
	s.consecutiveSuccesses.Store(0)
}

func (s *Stats) ConsecutiveFailures() uint64  { return s.consecutiveFailures.Load() }
func (s *Stats) ConsecutiveSuccesses() uint64 { return s.consecutiveSuccesses.Load() }
func (s *Stats) TotalCalls() uint64           { return s.totalCalls.Load() }
func (s *Stats) TotalFailures() uint64        { return s.totalFailures.Load() }
func (s *Stats) WindowCalls() uint64          { return s.windowCalls.Load() }
func (s *Stats) WindowFailures() uint64       { return s.windowFailures.Load() }

// ErrorRate returns windowFailures/windowCalls once the window has seen at
// least minThroughput calls, else 0.
func (s *Stats) ErrorRate() float64 {
	calls := s.windowCalls.Load()
	if calls < s.minThroughput {
		return 0
	}
	return float64(s.windowFailures.Load()) / float64(calls)
}

// EMAErrorRate returns the exponentially-weighted error rate.
func (s *Stats) EMAErrorRate() float64 {
	return math.Float64frombits(s.emaBits.Load())
}

// rollWindowIfNeeded performs the lazy tumbling-window roll: when the
// window has been open at least windowWidth, the counters are replaced
// with fresh zeros on the next recording. Windows are non-overlapping.
func (s *Stats) rollWindowIfNeeded() {
	started := s.windowStartedAt.Load()
	now := s.clock.Now().UnixNano()
	if time.Duration(now-started) < s.windowWidth {
		return
	}
	if s.windowStartedAt.CompareAndSwap(started, now) {
		s.windowCalls.Store(0)
		s.windowFailures.Store(0)
	}
}

// updateEMA applies ema <- alpha*sample + (1-alpha)*ema via a CAS retry
// loop, since float64 bit patterns cannot be read-modify-written directly.
func (s *Stats) updateEMA(sample float64) {
	for {
		oldBits := s.emaBits.Load()
		old := math.Float64frombits(oldBits)
		next := s.alpha*sample + (1-s.alpha)*old
		if s.emaBits.CompareAndSwap(oldBits, math.Float64bits(next)) {
			return
		}
	}
}
