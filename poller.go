package reactor

import (
	"time"
)

// Poller is the readiness-polling contract backing a [Reactor].
//
// The engine hands Poll a point-in-time snapshot of the watched
// descriptors each iteration; implementations own whatever per-backend
// state (epoll registrations, kqueue filters) is needed to satisfy the
// set-based contract.
//
// Implementations are used from the loop goroutine only and need no
// internal synchronization.
type Poller interface {
	// Poll blocks until at least one descriptor in read or write is ready,
	// or the timeout elapses, and returns the ready subsets.
	//
	// A negative timeout blocks indefinitely; zero returns immediately
	// with whatever is already ready. Both sets may be empty, in which
	// case Poll degrades to a pure timed sleep. Syscalls interrupted by a
	// signal (EINTR) are retried internally against the remaining
	// deadline, never surfaced to the caller.
	Poll(read, write []int, timeout time.Duration) (readReady, writeReady []int, err error)

	// Close releases backend resources. Poll must not be called after
	// Close.
	Close() error
}

// timeoutMillis converts a non-negative timeout to whole milliseconds for
// millisecond-resolution syscalls, rounding up so sub-millisecond waits
// sleep rather than busy-spin.
func timeoutMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
