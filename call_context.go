package breaker

import "context"

// ContextFunc is the signature of a cooperative-suspension protected
// operation: it may block on ctx internally (e.g. an RPC), and the
// suspension happens entirely inside fn — admission and reporting around
// it are synchronous, same as Call.
type ContextFunc func(ctx context.Context) error

// CallContext is the cooperative-suspension counterpart to Call. It
// applies the identical admission/report contract but awaits fn under
// ctx, so the caller's goroutine can be one of many multiplexed onto a
// scheduler rather than blocked outright.
//
// If ctx is cancelled before fn returns, the outcome is reported as a
// failure by default (the conservative choice documented in the spec's
// open questions: a cancelled probe counts against recovery). Set
// Configuration.CountCancellationAsFailure to false to opt out — in that
// case a cancellation reports no outcome at all and, if it happened during
// a probe, simply frees the probe slot.
func (b *Breaker) CallContext(ctx context.Context, fn ContextFunc) error {
	admission := b.fsm.admit()
	switch admission {
	case Reject:
		b.cfg.MetricSink.Counter(MetricRejectionsTotal, 1)
		b.cfg.Hooks.fireCallRejected(b.name)
		return rejectedError(b.probeSaturated())

	case PermitProbe:
		defer b.fsm.decrementProbe()
		b.cfg.Hooks.fireCallPermitted(b.name, admission)
		err := fn(ctx)
		if cancelled(ctx, err) && !b.cfg.CountCancellationAsFailure {
			return b.translate(err)
		}
		b.reportProbe(err)
		return b.translate(err)

	default: // Permit
		b.cfg.Hooks.fireCallPermitted(b.name, admission)
		err := fn(ctx)
		if cancelled(ctx, err) && !b.cfg.CountCancellationAsFailure {
			return b.translate(err)
		}
		b.reportPermit(err)
		return b.translate(err)
	}
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && err != nil
}
