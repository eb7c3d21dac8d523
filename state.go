package reactor

import (
	"sync/atomic"
)

// State represents the lifecycle state of a [Reactor].
//
// State machine:
//
//	StateIdle → StateRunning      [Run]
//	StateRunning → StateStopping  [Stop]
//	StateStopping → StateIdle     [end of the in-flight iteration]
//	StateRunning → StateIdle      [nothing left that could wake the loop]
type State uint32

const (
	// StateIdle indicates the reactor is not running. Run may be entered
	// (again); registered timers, ticks, and watchers persist across runs.
	StateIdle State = iota
	// StateRunning indicates the loop is executing iterations.
	StateRunning
	// StateStopping indicates Stop was called; the loop exits at the end
	// of the in-flight iteration.
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// stateHolder is an atomic holder for the reactor state.
//
// Dispatch is single-threaded; the atomic exists so that Stop and State
// remain well-defined when observed from outside the loop goroutine. A
// Stop issued off-loop is only acted on at the loop's next wakeup.
type stateHolder struct {
	v atomic.Uint32
}

func (s *stateHolder) load() State {
	return State(s.v.Load())
}

func (s *stateHolder) store(state State) {
	s.v.Store(uint32(state))
}

// tryTransition attempts to atomically transition from one state to
// another, reporting whether it succeeded.
func (s *stateHolder) tryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
