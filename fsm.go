package breaker

import (
	"sync/atomic"
	"time"
)

// cell is the single atomically-updatable record the FSM transitions as a
// unit: current state, the instant the current Open episode began, and the
// HalfOpen probe accounting. Every field transitions together under one
// compare-and-swap, so invariants 1-4 and 7 of the spec hold at every
// observation point — there is no window where, say, probesInFlight has
// been bumped but state has not yet settled into HalfOpen.
type cell struct {
	state          State
	openedAt       int64 // unix nano; meaningful only while state == Open
	probesInFlight uint32
	probesAdmitted uint32
}

// fsm is the lock-free Closed/Open/HalfOpen state machine. Admission is a
// wait-free atomic load on the Closed hot path; losers of a transition CAS
// simply re-read the cell and re-decide, so contention degrades to retries,
// never to blocking.
type fsm struct {
	cell atomic.Pointer[cell]

	name          string
	cooldown      time.Duration
	probeInterval uint32
	clock         Clock
	hooks         *Hooks
	sink          MetricSink

	// onHalfOpenEnter is invoked by the thread that wins the Open->HalfOpen
	// CAS, to reset Stats' consecutive counters per invariant 7. It lives
	// here rather than on Breaker because only the winning CAS may fire it.
	onHalfOpenEnter func()
}

func newFSM(name string, cfg Configuration, onHalfOpenEnter func()) *fsm {
	f := &fsm{
		name:            name,
		cooldown:        cfg.Cooldown,
		probeInterval:   cfg.ProbeInterval,
		clock:           cfg.Clock,
		hooks:           cfg.Hooks,
		sink:            cfg.MetricSink,
		onHalfOpenEnter: onHalfOpenEnter,
	}
	f.cell.Store(&cell{state: Closed})
	return f
}

func (f *fsm) current() *cell {
	return f.cell.Load()
}

func (f *fsm) state() State {
	return f.current().state
}

// admit implements the central admission algorithm of spec §4.D.
func (f *fsm) admit() Admission {
	for {
		cur := f.current()
		switch cur.state {
		case Closed:
			return Permit

		case Open:
			elapsed := f.clock.Now().Sub(time.Unix(0, cur.openedAt))
			if elapsed < f.cooldown {
				return Reject
			}
			next := &cell{state: HalfOpen}
			if f.cell.CompareAndSwap(cur, next) {
				if f.onHalfOpenEnter != nil {
					f.onHalfOpenEnter()
				}
				f.onTransition(Open, HalfOpen)
				continue // fall through to rule 3 under the new state
			}
			continue // lost the race; re-read and re-decide

		case HalfOpen:
			if cur.probesInFlight >= f.probeInterval {
				return Reject
			}
			next := &cell{
				state:          HalfOpen,
				openedAt:       cur.openedAt,
				probesInFlight: cur.probesInFlight + 1,
				probesAdmitted: cur.probesAdmitted + 1,
			}
			if f.cell.CompareAndSwap(cur, next) {
				f.sink.Gauge(MetricProbesInFlight, float64(next.probesInFlight))
				return PermitProbe
			}
			continue

		default:
			return Reject
		}
	}
}

// decrementProbe is the scope-bound guard a call adapter defers immediately
// after receiving PermitProbe, so probesInFlight is released on every exit
// path from op, including a panic.
func (f *fsm) decrementProbe() {
	for {
		cur := f.current()
		if cur.state != HalfOpen || cur.probesInFlight == 0 {
			return
		}
		next := &cell{
			state:          HalfOpen,
			openedAt:       cur.openedAt,
			probesInFlight: cur.probesInFlight - 1,
			probesAdmitted: cur.probesAdmitted,
		}
		if f.cell.CompareAndSwap(cur, next) {
			f.sink.Gauge(MetricProbesInFlight, float64(next.probesInFlight))
			return
		}
	}
}

// tripFromClosed transitions Closed->Open, used after a Permit+Failure
// report when Policy.ShouldTrip agrees.
func (f *fsm) tripFromClosed() bool {
	for {
		cur := f.current()
		if cur.state != Closed {
			return false
		}
		next := &cell{state: Open, openedAt: f.clock.Now().UnixNano()}
		if f.cell.CompareAndSwap(cur, next) {
			f.onTransition(Closed, Open)
			return true
		}
	}
}

// revertToOpen transitions HalfOpen->Open after a failed probe.
func (f *fsm) revertToOpen() bool {
	for {
		cur := f.current()
		if cur.state != HalfOpen {
			return false
		}
		next := &cell{state: Open, openedAt: f.clock.Now().UnixNano()}
		if f.cell.CompareAndSwap(cur, next) {
			f.onTransition(HalfOpen, Open)
			return true
		}
	}
}

// closeFromHalfOpen transitions HalfOpen->Closed after enough probe
// successes.
func (f *fsm) closeFromHalfOpen() bool {
	for {
		cur := f.current()
		if cur.state != HalfOpen {
			return false
		}
		next := &cell{state: Closed}
		if f.cell.CompareAndSwap(cur, next) {
			f.onTransition(HalfOpen, Closed)
			return true
		}
	}
}

// forceOpen transitions from whichever state is current into Open,
// returning false if already Open.
func (f *fsm) forceOpen() bool {
	for {
		cur := f.current()
		if cur.state == Open {
			return false
		}
		next := &cell{state: Open, openedAt: f.clock.Now().UnixNano()}
		if f.cell.CompareAndSwap(cur, next) {
			f.onTransition(cur.state, Open)
			return true
		}
	}
}

// forceClose transitions from whichever state is current into Closed,
// returning false if already Closed.
func (f *fsm) forceClose() bool {
	for {
		cur := f.current()
		if cur.state == Closed {
			return false
		}
		next := &cell{state: Closed}
		if f.cell.CompareAndSwap(cur, next) {
			f.onTransition(cur.state, Closed)
			return true
		}
	}
}

// onTransition publishes metrics and fires the state hook for the state
// just entered. The thread that won the CAS is the one that calls this,
// so hook firing is itself linearized with the transition it reports.
func (f *fsm) onTransition(_, to State) {
	f.sink.Counter(MetricTransitionsTotal, 1)
	f.sink.Gauge(MetricState, float64(to))
	if to != HalfOpen {
		f.sink.Gauge(MetricProbesInFlight, 0)
	}
	switch to {
	case Open:
		f.hooks.fireOpen(f.name)
	case Closed:
		f.hooks.fireClose(f.name)
	case HalfOpen:
		f.hooks.fireHalfOpen(f.name)
	}
}
