// Package reactor provides a single-threaded event-loop core: timers,
// deferred ticks, and file-descriptor readiness watching, driven by one
// blocking [Reactor.Run] call owned by the host program.
//
// # Architecture
//
// The engine composes four registries behind a narrow handle-based API:
// a timer registry (one-shot and periodic timers with cancellation), a
// strictly-ordered tick queue ([Reactor.FutureTick]), a watcher registry
// (per-descriptor read/write callbacks), and a pluggable readiness
// [Poller]. Many independent components can share one Reactor instance
// without fighting over who calls the underlying polling primitive.
//
// # Iteration Order
//
// Each pass of the loop:
//
//  1. Drains the tick queue (entries enqueued during the drain run on the
//     next pass, so tick work per iteration is bounded).
//  2. Computes a poll wait bounded by the nearest timer deadline; zero if
//     more ticks are already pending.
//  3. Polls a point-in-time snapshot of the watched descriptors.
//  4. Dispatches read and write callbacks for the ready subset.
//  5. Fires timers due by the time observed after the poll returns.
//
// Run returns once nothing remains that could ever wake the loop, or at
// the end of the iteration in which [Reactor.Stop] was called.
//
// # Platform Support
//
// Readiness polling uses platform-native mechanisms by default:
//   - Linux: epoll
//   - macOS: kqueue
//
// A portable fallback over the poll(2) syscall is available via
// [NewPollPoller], and any implementation of the [Poller] contract can be
// injected with [WithPoller].
//
// # Thread Model
//
// The reactor is single-threaded: every callback executes on the
// goroutine that called Run, synchronously and to completion. Callbacks
// may freely mutate the registries they are dispatched from; cancellation
// is immediate at the registry level but never interrupts a callback
// already in flight. A nested Run call from within a callback is rejected
// with [ErrReactorRunning]. Panics raised by callbacks are not recovered;
// they unwind out of Run into the host's own supervision.
//
// # Usage
//
//	r, err := reactor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	r.AddTimer(100*time.Millisecond, func(reactor.TimerID) {
//	    fmt.Println("hello after 100ms")
//	})
//	r.FutureTick(func() {
//	    fmt.Println("hello on the first pass")
//	})
//
//	if err := r.Run(); err != nil {
//	    log.Fatal(err)
//	}
package reactor
