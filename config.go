package breaker

import (
	"fmt"
	"time"
)

// Default configuration values, per the spec's Builder defaults.
const (
	DefaultFailureThreshold          = 0.5
	DefaultMinThroughput             = 1
	DefaultCooldown                  = 30 * time.Second
	DefaultProbeInterval             = 1
	DefaultConsecutiveFailuresTrip   = 5
	DefaultConsecutiveSuccessesReset = 2
	DefaultEMAAlpha                  = 0.1
	DefaultWindowWidth               = 10 * time.Second
)

// Configuration is the immutable parameter record consumed by a Breaker.
// Build one with Builder rather than constructing it directly, so that
// defaults and validation are applied consistently.
type Configuration struct {
	FailureThreshold          float64
	MinThroughput             uint64
	Cooldown                  time.Duration
	ProbeInterval             uint32
	ConsecutiveFailuresTrip   uint64
	ConsecutiveSuccessesReset uint64
	EMAAlpha                  float64
	WindowWidth               time.Duration

	// TripOnProbeFailureUnconditionally controls whether a HalfOpen probe
	// failure reverts to Open unconditionally (the default, per the open
	// question in the spec's design notes) or only when Policy.ShouldTrip
	// also agrees.
	TripOnProbeFailureUnconditionally bool

	// CountCancellationAsFailure controls how CallContext treats a context
	// cancelled before the wrapped operation returns. Default true: a
	// cancelled probe counts against recovery (the conservative choice).
	CountCancellationAsFailure bool

	Policy     Policy
	Hooks      *Hooks
	MetricSink MetricSink
	Clock      Clock
}

// Builder builds an immutable Configuration. NewBuilder returns one seeded
// with every default listed above; the zero value carries no defaults, and
// its Build fails validation.
type Builder struct {
	cfg Configuration
}

// NewBuilder returns a Builder seeded with the spec's default values.
func NewBuilder() *Builder {
	b := &Builder{}
	b.cfg = Configuration{
		FailureThreshold:                  DefaultFailureThreshold,
		MinThroughput:                     DefaultMinThroughput,
		Cooldown:                          DefaultCooldown,
		ProbeInterval:                     DefaultProbeInterval,
		ConsecutiveFailuresTrip:           DefaultConsecutiveFailuresTrip,
		ConsecutiveSuccessesReset:         DefaultConsecutiveSuccessesReset,
		EMAAlpha:                          DefaultEMAAlpha,
		WindowWidth:                       DefaultWindowWidth,
		TripOnProbeFailureUnconditionally: true,
		CountCancellationAsFailure:        true,
	}
	return b
}

// WithFailureThreshold sets the error-rate trip point, in (0,1].
func (b *Builder) WithFailureThreshold(v float64) *Builder {
	b.cfg.FailureThreshold = v
	return b
}

// WithMinThroughput sets the number of window calls required before
// rate-based tripping may fire.
func (b *Builder) WithMinThroughput(v uint64) *Builder {
	b.cfg.MinThroughput = v
	return b
}

// WithCooldown sets the duration spent Open before transitioning to
// HalfOpen.
func (b *Builder) WithCooldown(v time.Duration) *Builder {
	b.cfg.Cooldown = v
	return b
}

// WithProbeInterval sets the maximum concurrent probe admissions while
// HalfOpen.
func (b *Builder) WithProbeInterval(v uint32) *Builder {
	b.cfg.ProbeInterval = v
	return b
}

// WithConsecutiveFailuresTrip sets the absolute-count trip threshold,
// which bypasses MinThroughput.
func (b *Builder) WithConsecutiveFailuresTrip(v uint64) *Builder {
	b.cfg.ConsecutiveFailuresTrip = v
	return b
}

// WithConsecutiveSuccessesReset sets the successes required in HalfOpen
// before closing.
func (b *Builder) WithConsecutiveSuccessesReset(v uint64) *Builder {
	b.cfg.ConsecutiveSuccessesReset = v
	return b
}

// WithEMAAlpha sets the EMA smoothing factor, in (0,1].
func (b *Builder) WithEMAAlpha(v float64) *Builder {
	b.cfg.EMAAlpha = v
	return b
}

// WithWindowWidth sets the fixed-window width.
func (b *Builder) WithWindowWidth(v time.Duration) *Builder {
	b.cfg.WindowWidth = v
	return b
}

// WithTripOnProbeFailureUnconditionally overrides the default (true)
// handling of a HalfOpen probe failure.
func (b *Builder) WithTripOnProbeFailureUnconditionally(v bool) *Builder {
	b.cfg.TripOnProbeFailureUnconditionally = v
	return b
}

// WithCountCancellationAsFailure overrides the default (true) handling of
// a cancelled CallContext invocation.
func (b *Builder) WithCountCancellationAsFailure(v bool) *Builder {
	b.cfg.CountCancellationAsFailure = v
	return b
}

// WithPolicy installs a custom Policy, overriding DefaultPolicy.
func (b *Builder) WithPolicy(p Policy) *Builder {
	b.cfg.Policy = p
	return b
}

// WithHooks installs observer callbacks.
func (b *Builder) WithHooks(h *Hooks) *Builder {
	b.cfg.Hooks = h
	return b
}

// WithMetricSink installs a metric sink.
func (b *Builder) WithMetricSink(s MetricSink) *Builder {
	b.cfg.MetricSink = s
	return b
}

// WithClock installs a Clock, primarily for deterministic testing.
func (b *Builder) WithClock(c Clock) *Builder {
	b.cfg.Clock = c
	return b
}

// Build validates the accumulated settings and returns the immutable
// Configuration, or ErrConfigurationError wrapped with the offending field.
func (b *Builder) Build() (Configuration, error) {
	cfg := b.cfg

	if cfg.FailureThreshold <= 0 || cfg.FailureThreshold > 1 {
		return Configuration{}, fmt.Errorf("%w: failure threshold %v must be in (0,1]", ErrConfigurationError, cfg.FailureThreshold)
	}
	if cfg.MinThroughput < 1 {
		return Configuration{}, fmt.Errorf("%w: min throughput %d must be >= 1", ErrConfigurationError, cfg.MinThroughput)
	}
	if cfg.Cooldown <= 0 {
		return Configuration{}, fmt.Errorf("%w: cooldown %v must be positive", ErrConfigurationError, cfg.Cooldown)
	}
	if cfg.ProbeInterval < 1 {
		return Configuration{}, fmt.Errorf("%w: probe interval %d must be >= 1", ErrConfigurationError, cfg.ProbeInterval)
	}
	if cfg.ConsecutiveFailuresTrip < 1 {
		return Configuration{}, fmt.Errorf("%w: consecutive failures trip %d must be >= 1", ErrConfigurationError, cfg.ConsecutiveFailuresTrip)
	}
	if cfg.ConsecutiveSuccessesReset < 1 {
		return Configuration{}, fmt.Errorf("%w: consecutive successes reset %d must be >= 1", ErrConfigurationError, cfg.ConsecutiveSuccessesReset)
	}
	if cfg.EMAAlpha <= 0 || cfg.EMAAlpha > 1 {
		return Configuration{}, fmt.Errorf("%w: ema alpha %v must be in (0,1]", ErrConfigurationError, cfg.EMAAlpha)
	}
	if cfg.WindowWidth <= 0 {
		return Configuration{}, fmt.Errorf("%w: window width %v must be positive", ErrConfigurationError, cfg.WindowWidth)
	}

	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy{
			FailureThreshold:          cfg.FailureThreshold,
			MinThroughput:             cfg.MinThroughput,
			ConsecutiveFailuresTrip:   cfg.ConsecutiveFailuresTrip,
			ConsecutiveSuccessesReset: cfg.ConsecutiveSuccessesReset,
		}
	}
	if cfg.MetricSink == nil {
		cfg.MetricSink = NullSink{}
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	return cfg, nil
}
