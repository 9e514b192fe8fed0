package breaker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-oss/breaker"
	"github.com/kestrel-oss/breaker/testclock"
)

func TestStatsErrorRateRequiresMinThroughput(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, func(b *breaker.Builder) {
		b.WithMinThroughput(10).WithConsecutiveFailuresTrip(1000)
	})

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, float64(0), cb.Stats().ErrorRate(), "error rate must read 0 below min throughput")
}

func TestStatsConsecutiveCountersResetOnOppositeOutcome(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, uint64(2), cb.Stats().ConsecutiveFailures())

	_ = cb.Call(func() error { return nil })
	assert.Equal(t, uint64(0), cb.Stats().ConsecutiveFailures())
	assert.Equal(t, uint64(1), cb.Stats().ConsecutiveSuccesses())
}

func TestStatsWindowRollsOverAfterWidthElapses(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, func(b *breaker.Builder) {
		b.WithWindowWidth(time.Second).WithMinThroughput(1).WithConsecutiveFailuresTrip(1000)
	})

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, uint64(1), cb.Stats().WindowCalls())

	clock.Advance(2 * time.Second)
	_ = cb.Call(func() error { return nil })
	assert.Equal(t, uint64(1), cb.Stats().WindowCalls(), "window must have rolled, discarding the prior call")
}

func TestStatsResetConsecutiveOnHalfOpenEntryPreservesWindow(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, func(b *breaker.Builder) {
		b.WithConsecutiveFailuresTrip(2).WithConsecutiveSuccessesReset(5)
	})

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, uint64(2), cb.Stats().TotalFailures())

	clock.Advance(100 * time.Millisecond)

	_ = cb.Call(func() error { return nil }) // enters HalfOpen, resets consecutive counters
	assert.Equal(t, uint64(0), cb.Stats().ConsecutiveFailures())
	assert.Equal(t, uint64(3), cb.Stats().TotalCalls(), "total calls must survive the consecutive-only reset")
}
