package reactor

import (
	"errors"
)

// Standard errors.
var (
	// ErrNegativeInterval is returned when a timer is registered with a
	// negative interval. A zero interval is valid for one-shot timers and
	// fires on the next iteration after at least one poll pass.
	ErrNegativeInterval = errors.New("reactor: timer interval must not be negative")

	// ErrNonPositiveInterval is returned when a periodic timer is
	// registered with an interval of zero or less. A zero-interval
	// periodic timer would busy-spin the loop.
	ErrNonPositiveInterval = errors.New("reactor: periodic timer interval must be positive")

	// ErrReactorRunning is returned by Run when the reactor is already
	// running, including the nested case of calling Run from within a
	// callback, and by Close while the loop is in flight.
	ErrReactorRunning = errors.New("reactor: loop is already running")

	// ErrReactorClosed is returned by Run after Close has released the
	// poller.
	ErrReactorClosed = errors.New("reactor: reactor has been closed")

	// ErrPollerClosed is returned by a Poller whose resources have been
	// released.
	ErrPollerClosed = errors.New("reactor: poller closed")

	// ErrPlatformUnsupported is returned by New when no default poller
	// backend exists for the platform and none was supplied via
	// WithPoller.
	ErrPlatformUnsupported = errors.New("reactor: no poller backend for this platform")
)
