package reactor

import (
	"sort"
	"time"

	"github.com/joeycumines/logiface"
)

// Reactor is a single-threaded event loop: timers, deferred ticks, and
// descriptor readiness watching driven by one blocking [Reactor.Run] call.
//
// All methods are intended for the goroutine that owns the loop; see the
// package documentation for the threading contract. The zero value is not
// usable; construct with [New].
type Reactor struct {
	// Prevent copying
	_ [0]func()

	timers   *timerRegistry
	ticks    *tickQueue
	watchers *watcherRegistry
	poller   Poller
	log      *logiface.Logger[logiface.Event]

	state  stateHolder
	closed bool
}

// New constructs a Reactor. Unless [WithPoller] supplies a backend, the
// best native poller for the platform is used (epoll on Linux, kqueue on
// Darwin); [ErrPlatformUnsupported] is returned where neither exists.
func New(opts ...Option) (*Reactor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	p := cfg.poller
	if p == nil {
		p, err = newDefaultPoller()
		if err != nil {
			return nil, err
		}
	}
	return &Reactor{
		timers:   newTimerRegistry(),
		ticks:    newTickQueue(),
		watchers: newWatcherRegistry(),
		poller:   p,
		log:      cfg.logger,
	}, nil
}

// AddTimer schedules cb to fire once after interval. A zero interval is
// valid and fires on the next iteration after at least one poll pass.
// Returns [ErrNegativeInterval] for a negative interval.
func (r *Reactor) AddTimer(interval time.Duration, cb TimerCallback) (TimerID, error) {
	if interval < 0 {
		return 0, ErrNegativeInterval
	}
	return r.timers.add(interval, false, cb, time.Now()), nil
}

// AddPeriodicTimer schedules cb to fire repeatedly, every interval, until
// canceled. Each firing is rescheduled from the time the timer was
// observed due, not from its previous deadline, so intervals never
// compress into a catch-up burst after a slow callback. Returns
// [ErrNonPositiveInterval] unless interval is positive.
func (r *Reactor) AddPeriodicTimer(interval time.Duration, cb TimerCallback) (TimerID, error) {
	if interval <= 0 {
		return 0, ErrNonPositiveInterval
	}
	return r.timers.add(interval, true, cb, time.Now()), nil
}

// CancelTimer deactivates and removes a timer. Canceling an unknown,
// already-fired, or already-canceled handle is a no-op, so callbacks
// never need defensive liveness tracking. Cancellation is immediate at
// the registry level but does not interrupt a callback already in flight.
func (r *Reactor) CancelTimer(id TimerID) {
	r.timers.cancel(id)
}

// IsTimerActive reports whether id maps to a live timer: true between
// registration and either cancellation or (for one-shot timers) firing.
func (r *Reactor) IsTimerActive(id TimerID) bool {
	return r.timers.isActive(id)
}

// FutureTick enqueues cb to run on a future iteration of the loop. Ticks
// run in strict FIFO order before any polling or timer dispatch; once
// enqueued there is no way to cancel. A tick enqueued from within a
// draining tick runs on the next iteration, never the current drain.
func (r *Reactor) FutureTick(cb func()) {
	r.ticks.enqueue(cb)
}

// WatchRead installs cb as the read-readiness callback for fd, replacing
// any prior read callback for the same descriptor.
func (r *Reactor) WatchRead(fd int, cb FDCallback) {
	r.watchers.watchRead(fd, cb)
}

// WatchWrite installs cb as the write-readiness callback for fd,
// replacing any prior write callback for the same descriptor.
func (r *Reactor) WatchWrite(fd int, cb FDCallback) {
	r.watchers.watchWrite(fd, cb)
}

// UnwatchRead removes the read callback for fd; a no-op if absent.
// Callers must unwatch a descriptor before closing it — the engine does
// not detect closure beyond what the poller reports as readiness.
func (r *Reactor) UnwatchRead(fd int) {
	r.watchers.unwatchRead(fd)
}

// UnwatchWrite removes the write callback for fd; a no-op if absent.
func (r *Reactor) UnwatchWrite(fd int) {
	r.watchers.unwatchWrite(fd)
}

// UnwatchAll removes both callbacks for fd; a no-op if absent.
func (r *Reactor) UnwatchAll(fd int) {
	r.watchers.unwatchAll(fd)
}

// State returns the current lifecycle state.
func (r *Reactor) State() State {
	return r.state.load()
}

// Run drives the loop until [Reactor.Stop] is called or nothing remains
// that could ever wake it: no active timers, no pending ticks, no watched
// descriptors. Timers, ticks, and watchers registered before or between
// runs persist, so Run may be entered repeatedly across the reactor's
// lifetime.
//
// Run returns [ErrReactorRunning] when the loop is already running
// (including Run called from within a callback), [ErrReactorClosed] after
// Close, and otherwise the poller's error on a fatal poll fault. Callback
// panics are not recovered and unwind through Run.
func (r *Reactor) Run() error {
	if !r.state.tryTransition(StateIdle, StateRunning) {
		return ErrReactorRunning
	}
	// The deferred reset also runs when a callback panics, so the reactor
	// is observably idle while the panic unwinds into host supervision.
	defer r.state.store(StateIdle)
	if r.closed {
		return ErrReactorClosed
	}

	r.log.Debug().Log("reactor: run entered")
	for {
		done, err := r.iterate()
		if err != nil {
			r.log.Err().Err(err).Log("reactor: fatal poll fault")
			return err
		}
		if done {
			r.log.Debug().Log("reactor: run exited")
			return nil
		}
	}
}

// Stop halts the loop at the end of the in-flight iteration, never
// mid-dispatch. Stopping an idle reactor is a no-op. Stop is intended to
// be called from timer, tick, and watcher callbacks; a call from another
// goroutine is observed at the loop's next wakeup, as the engine carries
// no cross-thread wake mechanism.
func (r *Reactor) Stop() {
	r.state.tryTransition(StateRunning, StateStopping)
}

// Close releases the poller. The reactor must not be running; after Close
// no callbacks will ever fire. Close is idempotent.
func (r *Reactor) Close() error {
	if r.state.load() != StateIdle {
		return ErrReactorRunning
	}
	if r.closed {
		return nil
	}
	r.closed = true
	return r.poller.Close()
}

// iterate executes one pass of the loop: drain ticks, compute the bounded
// wait, poll a watcher snapshot, dispatch readiness, fire due timers,
// then evaluate the exit conditions.
func (r *Reactor) iterate() (done bool, err error) {
	r.ticks.drain()

	stopping := r.state.load() == StateStopping
	readSet, writeSet := r.watchers.snapshot()

	// A negative wait blocks the poll indefinitely. Ticks pending after
	// the drain (or a stop request) force an immediate pass instead.
	var wait time.Duration
	switch {
	case stopping || r.ticks.len() > 0:
		wait = 0
	default:
		if deadline, ok := r.timers.nextDeadline(); ok {
			wait = time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
		} else if len(readSet) > 0 || len(writeSet) > 0 {
			wait = -1
		} else {
			// No timers, ticks, or watchers: a poll could never return.
			return true, nil
		}
	}

	readReady, writeReady, err := r.poller.Poll(readSet, writeSet, wait)
	if err != nil {
		return false, err
	}

	// Dispatch against the live registry, in ascending-descriptor order: a
	// callback that removes a not-yet-dispatched watcher suppresses it for
	// the remainder of this iteration, and an already-dispatched callback
	// is never retroactively un-fired.
	sort.Ints(readReady)
	sort.Ints(writeReady)
	for _, fd := range readReady {
		if cb := r.watchers.readCallback(fd); cb != nil {
			cb(fd)
		}
	}
	for _, fd := range writeReady {
		if cb := r.watchers.writeCallback(fd); cb != nil {
			cb(fd)
		}
	}

	// Timers fire against the time observed after the poll returns, so a
	// long wait cannot fire them early relative to wall clock, and a
	// zero-duration wait lets timers found due fire on the same pass.
	for _, due := range r.timers.popDue(time.Now()) {
		if due.periodic && !r.timers.isActive(due.id) {
			// Canceled by an earlier callback in this batch.
			continue
		}
		due.callback(due.id)
	}

	if r.state.load() == StateStopping {
		return true, nil
	}
	return r.timers.len() == 0 && r.ticks.len() == 0 && r.watchers.len() == 0, nil
}
