package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-oss/breaker"
	"github.com/kestrel-oss/breaker/testclock"
)

func newTestBreaker(t *testing.T, clock breaker.Clock, mutate func(*breaker.Builder)) *breaker.Breaker {
	t.Helper()
	b := breaker.NewBuilder().
		WithFailureThreshold(0.5).
		WithMinThroughput(100).
		WithCooldown(100 * time.Millisecond).
		WithProbeInterval(1).
		WithConsecutiveFailuresTrip(3).
		WithConsecutiveSuccessesReset(1).
		WithClock(clock)
	if mutate != nil {
		mutate(b)
	}
	cfg, err := b.Build()
	require.NoError(t, err)
	return breaker.New("orders-api", cfg)
}

var errBoom = errors.New("boom")

func TestCallPermitsWhileClosed(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	err := cb.Call(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, breaker.Closed, cb.State())
}

func TestCallTripsAfterConsecutiveFailures(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return errBoom })
		require.Error(t, err)
	}
	assert.Equal(t, breaker.Open, cb.State())

	err := cb.Call(func() error { return nil })
	require.Error(t, err)
	assert.True(t, breaker.IsOpen(err))
}

func TestCallRejectsWhileOpenUntilCooldownElapses(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	require.Equal(t, breaker.Open, cb.State())

	err := cb.Call(func() error {
		t.Fatal("operation must not run while rejected")
		return nil
	})
	require.Error(t, err)

	clock.Advance(100 * time.Millisecond)

	ran := false
	err = cb.Call(func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, breaker.Closed, cb.State())
}

func TestHalfOpenProbeFailureRevertsToOpen(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	clock.Advance(100 * time.Millisecond)

	err := cb.Call(func() error { return errBoom })
	require.Error(t, err)
	assert.Equal(t, breaker.Open, cb.State())
}

func TestHalfOpenProbeLimitRejectsExtraCalls(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, func(b *breaker.Builder) {
		b.WithProbeInterval(1)
	})

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errBoom })
	}
	clock.Advance(100 * time.Millisecond)

	blocker := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Call(func() error {
			<-blocker
			return nil
		})
	}()

	// Give the goroutine a chance to be admitted as the single probe.
	time.Sleep(10 * time.Millisecond)

	err := cb.Call(func() error {
		t.Fatal("second probe must not run while the first is in flight")
		return nil
	})
	require.Error(t, err)
	var berr *breaker.BreakerError
	require.ErrorAs(t, err, &berr)
	assert.ErrorIs(t, err, breaker.ErrHalfOpenProbeLimit)

	close(blocker)
	require.NoError(t, <-done)
}

func TestForceOpenAndForceClose(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	assert.True(t, cb.ForceOpen())
	assert.False(t, cb.ForceOpen())
	assert.Equal(t, breaker.Open, cb.State())

	err := cb.Call(func() error { return nil })
	require.Error(t, err)

	assert.True(t, cb.ForceClose())
	assert.False(t, cb.ForceClose())
	assert.Equal(t, breaker.Closed, cb.State())

	err = cb.Call(func() error { return nil })
	require.NoError(t, err)
}

func TestResetClearsStatsWithoutChangingState(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, uint64(2), cb.Stats().ConsecutiveFailures())

	cb.Reset()
	assert.Equal(t, uint64(0), cb.Stats().ConsecutiveFailures())
	assert.Equal(t, breaker.Closed, cb.State())
}

func TestBreakerErrorUnwrapsToOriginalOperationError(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, nil)

	err := cb.Call(func() error { return errBoom })
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, breaker.IsOpen(err))
}

func TestDefaultPolicyTripsOnWindowErrorRate(t *testing.T) {
	clock := testclock.New(time.Unix(0, 0))
	cb := newTestBreaker(t, clock, func(b *breaker.Builder) {
		b.WithConsecutiveFailuresTrip(1000). // disable consecutive-count tripping
							WithMinThroughput(4).
							WithFailureThreshold(0.5).
							WithWindowWidth(time.Minute)
	})

	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })

	assert.Equal(t, breaker.Open, cb.State())
}
