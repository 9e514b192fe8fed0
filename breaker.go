package breaker

// Breaker wraps calls to an unreliable collaborator and short-circuits
// them once it is judged to be failing, per the configured Policy. A
// Breaker is created Closed, lives for as long as its embedder keeps a
// reference to it, and is safe for concurrent use by arbitrary goroutines
// with no thread-local state: the FSM cell and Stats counters are the only
// shared mutable state, and both are updated with atomic read-modify-write
// rather than a held lock.
type Breaker struct {
	name  string
	cfg   Configuration
	fsm   *fsm
	stats *Stats
}

// New builds a Breaker with the given name and configuration. Use
// NewBuilder().Build() to produce a validated Configuration, or pass a
// zero Configuration only if you intend to fill every field yourself.
func New(name string, cfg Configuration) *Breaker {
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.MetricSink == nil {
		cfg.MetricSink = NullSink{}
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy{
			FailureThreshold:          cfg.FailureThreshold,
			MinThroughput:             cfg.MinThroughput,
			ConsecutiveFailuresTrip:   cfg.ConsecutiveFailuresTrip,
			ConsecutiveSuccessesReset: cfg.ConsecutiveSuccessesReset,
		}
	}
	stats := newStats(cfg.EMAAlpha, cfg.WindowWidth, cfg.MinThroughput, cfg.Clock)
	return &Breaker{
		name:  name,
		cfg:   cfg,
		fsm:   newFSM(name, cfg, stats.ResetConsecutive),
		stats: stats,
	}
}

// Name returns the breaker's name, used to label hooks and metrics.
func (b *Breaker) Name() string { return b.name }

// State returns the current FSM state.
func (b *Breaker) State() State { return b.fsm.state() }

// Stats returns a read-only view of the failure/success accounting.
func (b *Breaker) Stats() StatsReader { return b.stats }

// ForceOpen forces the breaker into Open regardless of its current state
// and Policy, returning false if it was already Open.
func (b *Breaker) ForceOpen() bool {
	return b.fsm.forceOpen()
}

// ForceClose forces the breaker into Closed and clears Stats, returning
// false if it was already Closed.
func (b *Breaker) ForceClose() bool {
	ok := b.fsm.forceClose()
	if ok {
		b.stats.Reset()
	}
	return ok
}

// Reset clears Stats without touching the current State. Applying Reset
// to any state yields the same observable Stats as a freshly built
// Breaker with identical configuration.
func (b *Breaker) Reset() {
	b.stats.Reset()
}

// Func is the signature of a blocking protected operation.
type Func func() error

// Call executes fn under breaker protection. If admission is refused, fn
// never runs and Call returns a *BreakerError wrapping ErrOpen. Otherwise
// fn runs on the caller's goroutine, its outcome is reported to Stats and
// may drive a transition, and the original error from fn —
// if any — is returned wrapped in *BreakerError.
func (b *Breaker) Call(fn Func) error {
	admission := b.fsm.admit()
	switch admission {
	case Reject:
		b.cfg.MetricSink.Counter(MetricRejectionsTotal, 1)
		b.cfg.Hooks.fireCallRejected(b.name)
		return rejectedError(b.probeSaturated())

	case PermitProbe:
		defer b.fsm.decrementProbe()
		b.cfg.Hooks.fireCallPermitted(b.name, admission)
		err := fn()
		b.reportProbe(err)
		return b.translate(err)

	default: // Permit
		b.cfg.Hooks.fireCallPermitted(b.name, admission)
		err := fn()
		b.reportPermit(err)
		return b.translate(err)
	}
}

func (b *Breaker) translate(err error) error {
	if err == nil {
		return nil
	}
	return operationError(err)
}

// probeSaturated reports whether the most recent Reject was due to the
// HalfOpen probe budget being exhausted rather than an Open cooldown.
func (b *Breaker) probeSaturated() bool {
	cur := b.fsm.current()
	return cur.state == HalfOpen
}

func (b *Breaker) reportPermit(opErr error) {
	b.cfg.MetricSink.Counter(MetricCallsTotal, 1)
	if opErr == nil {
		b.stats.RecordSuccess()
		b.cfg.Hooks.fireSuccess(b.name)
		return
	}
	b.cfg.MetricSink.Counter(MetricFailuresTotal, 1)
	b.stats.RecordFailure()
	b.cfg.Hooks.fireFailure(b.name)
	if b.cfg.Policy.ShouldTrip(b.stats) {
		b.fsm.tripFromClosed()
	}
}

func (b *Breaker) reportProbe(opErr error) {
	b.cfg.MetricSink.Counter(MetricCallsTotal, 1)
	if opErr == nil {
		b.stats.RecordSuccess()
		b.cfg.Hooks.fireSuccess(b.name)
		if b.cfg.Policy.ShouldReset(b.stats) {
			if b.fsm.closeFromHalfOpen() {
				b.stats.Reset()
			}
		}
		return
	}
	b.cfg.MetricSink.Counter(MetricFailuresTotal, 1)
	b.stats.RecordFailure()
	b.cfg.Hooks.fireFailure(b.name)
	if b.cfg.TripOnProbeFailureUnconditionally || b.cfg.Policy.ShouldTrip(b.stats) {
		b.fsm.revertToOpen()
	}
}
