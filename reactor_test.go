package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoller is a timer-only Poller: it sleeps out the requested wait and
// never reports readiness. Engine tests that need no real descriptors use
// it so they are deterministic and platform-independent.
type fakePoller struct {
	err    error
	polls  int
	closed bool
}

func (p *fakePoller) Poll(read, write []int, timeout time.Duration) ([]int, []int, error) {
	p.polls++
	if p.err != nil {
		return nil, nil, p.err
	}
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return nil, nil, nil
}

func (p *fakePoller) Close() error {
	p.closed = true
	return nil
}

func newTestReactor(t *testing.T) (*Reactor, *fakePoller) {
	t.Helper()
	p := &fakePoller{}
	r, err := New(WithPoller(p))
	require.NoError(t, err)
	return r, p
}

func TestRun_EmptyReturnsImmediately(t *testing.T) {
	r, p := newTestReactor(t)

	start := time.Now()
	require.NoError(t, r.Run())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateIdle, r.State())
	assert.Zero(t, p.polls, "an empty loop must not poll")
}

func TestAddTimer_Validation(t *testing.T) {
	r, _ := newTestReactor(t)

	_, err := r.AddTimer(-time.Millisecond, func(TimerID) {})
	require.ErrorIs(t, err, ErrNegativeInterval)

	_, err = r.AddPeriodicTimer(0, func(TimerID) {})
	require.ErrorIs(t, err, ErrNonPositiveInterval)
	_, err = r.AddPeriodicTimer(-time.Millisecond, func(TimerID) {})
	require.ErrorIs(t, err, ErrNonPositiveInterval)

	// Zero is valid for one-shot timers.
	_, err = r.AddTimer(0, func(TimerID) {})
	require.NoError(t, err)
}

func TestRun_TimerOrdering(t *testing.T) {
	r, _ := newTestReactor(t)

	var order []string
	_, err := r.AddTimer(30*time.Millisecond, func(TimerID) { order = append(order, "T1") })
	require.NoError(t, err)
	_, err = r.AddTimer(80*time.Millisecond, func(TimerID) { order = append(order, "T2") })
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, r.Run())

	assert.Equal(t, []string{"T1", "T2"}, order)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestTimer_ZeroIntervalFiresAfterPollPass(t *testing.T) {
	r, p := newTestReactor(t)

	fired := false
	_, err := r.AddTimer(0, func(TimerID) { fired = true })
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.True(t, fired)
	assert.GreaterOrEqual(t, p.polls, 1, "a zero-interval timer still waits for one poll pass")
}

func TestIsTimerActive_Transitions(t *testing.T) {
	r, _ := newTestReactor(t)

	var activeInside bool
	var id TimerID
	id, err := r.AddTimer(10*time.Millisecond, func(fired TimerID) {
		// A one-shot is inactive the instant it fires, even before its
		// callback returns.
		activeInside = r.IsTimerActive(fired)
	})
	require.NoError(t, err)
	require.True(t, r.IsTimerActive(id))

	require.NoError(t, r.Run())
	assert.False(t, activeInside)
	assert.False(t, r.IsTimerActive(id))

	// Cancellation path: active between registration and cancel.
	id, err = r.AddTimer(time.Hour, func(TimerID) { t.Error("canceled timer must not fire") })
	require.NoError(t, err)
	require.True(t, r.IsTimerActive(id))
	r.CancelTimer(id)
	assert.False(t, r.IsTimerActive(id))
	r.CancelTimer(id) // stale handle: no-op

	// With the hour timer canceled nothing remains; Run returns.
	require.NoError(t, r.Run())
}

func TestPeriodic_CancelFromOwnCallback(t *testing.T) {
	r, _ := newTestReactor(t)

	count := 0
	_, err := r.AddPeriodicTimer(5*time.Millisecond, func(id TimerID) {
		count++
		r.CancelTimer(id)
	})
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.Equal(t, 1, count, "self-canceling periodic fires exactly once more, then never")
}

func TestPeriodic_CancelFromSiblingInSameBatch(t *testing.T) {
	r, _ := newTestReactor(t)

	count := 0
	var victim TimerID
	// Both timers come due in the same pop batch; the first callback
	// cancels the second, which must then be skipped.
	_, err := r.AddTimer(10*time.Millisecond, func(TimerID) { r.CancelTimer(victim) })
	require.NoError(t, err)
	victim, err = r.AddPeriodicTimer(10*time.Millisecond, func(TimerID) { count++ })
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.Zero(t, count, "periodic canceled earlier in the batch must not fire")
}

func TestFutureTick_Order(t *testing.T) {
	r, p := newTestReactor(t)

	type hit struct {
		label string
		polls int
	}
	var hits []hit
	record := func(label string) { hits = append(hits, hit{label, p.polls}) }

	r.FutureTick(func() {
		record("A")
		// Enqueued during the drain: next iteration, never this one.
		r.FutureTick(func() { record("C") })
	})
	r.FutureTick(func() { record("B") })

	require.NoError(t, r.Run())

	require.Len(t, hits, 3)
	assert.Equal(t, "A", hits[0].label)
	assert.Equal(t, "B", hits[1].label)
	assert.Equal(t, "C", hits[2].label)
	assert.Equal(t, hits[0].polls, hits[1].polls, "A and B drain in the same iteration")
	assert.Equal(t, hits[0].polls+1, hits[2].polls, "C must wait for the next iteration")
}

func TestStop_FromCallbackEndsIteration(t *testing.T) {
	r, _ := newTestReactor(t)

	count := 0
	_, err := r.AddPeriodicTimer(5*time.Millisecond, func(TimerID) { count++ })
	require.NoError(t, err)
	_, err = r.AddTimer(60*time.Millisecond, func(TimerID) {
		assert.Equal(t, StateRunning, r.State())
		r.Stop()
		assert.Equal(t, StateStopping, r.State())
	})
	require.NoError(t, err)

	require.NoError(t, r.Run())
	assert.Equal(t, StateIdle, r.State())
	assert.Greater(t, count, 0)

	// The periodic timer was stopped, not canceled: it persists and the
	// next Run resumes it.
	resumed := count
	_, err = r.AddTimer(25*time.Millisecond, func(TimerID) { r.Stop() })
	require.NoError(t, err)
	require.NoError(t, r.Run())
	assert.Greater(t, count, resumed)
}

func TestScenario_PeriodicCanceledByOneShot(t *testing.T) {
	r, _ := newTestReactor(t)

	count := 0
	periodic, err := r.AddPeriodicTimer(10*time.Millisecond, func(TimerID) { count++ })
	require.NoError(t, err)
	_, err = r.AddTimer(100*time.Millisecond, func(TimerID) { r.CancelTimer(periodic) })
	require.NoError(t, err)

	require.NoError(t, r.Run())

	// Nominally 9-10 firings in 100ms; leave slack for scheduler jitter.
	assert.GreaterOrEqual(t, count, 5)
	assert.LessOrEqual(t, count, 11)
	assert.False(t, r.IsTimerActive(periodic))
}

func TestRun_ReentrantRejected(t *testing.T) {
	r, _ := newTestReactor(t)

	var nested error
	r.FutureTick(func() { nested = r.Run() })

	require.NoError(t, r.Run())
	require.ErrorIs(t, nested, ErrReactorRunning)
}

func TestStop_IdleNoOp(t *testing.T) {
	r, _ := newTestReactor(t)

	r.Stop()
	assert.Equal(t, StateIdle, r.State())

	// A prior idle Stop must not poison the next run.
	ran := false
	r.FutureTick(func() { ran = true })
	require.NoError(t, r.Run())
	assert.True(t, ran)
}

func TestRun_PollerFaultIsFatal(t *testing.T) {
	fault := errors.New("backend exploded")
	p := &fakePoller{err: fault}
	r, err := New(WithPoller(p))
	require.NoError(t, err)

	_, err = r.AddTimer(time.Millisecond, func(TimerID) { t.Error("must not dispatch after a poll fault") })
	require.NoError(t, err)

	require.ErrorIs(t, r.Run(), fault)
	assert.Equal(t, StateIdle, r.State())
}

func TestClose(t *testing.T) {
	r, p := newTestReactor(t)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "Close is idempotent")
	assert.True(t, p.closed)

	require.ErrorIs(t, r.Run(), ErrReactorClosed)
}

func TestClose_WhileRunningRejected(t *testing.T) {
	r, _ := newTestReactor(t)

	var closeErr error
	r.FutureTick(func() { closeErr = r.Close() })

	require.NoError(t, r.Run())
	require.ErrorIs(t, closeErr, ErrReactorRunning)

	require.NoError(t, r.Close())
}

func TestRun_ResumesAcrossRuns(t *testing.T) {
	r, _ := newTestReactor(t)

	var order []string
	_, err := r.AddTimer(10*time.Millisecond, func(TimerID) { order = append(order, "first") })
	require.NoError(t, err)
	require.NoError(t, r.Run())

	_, err = r.AddTimer(10*time.Millisecond, func(TimerID) { order = append(order, "second") })
	require.NoError(t, err)
	require.NoError(t, r.Run())

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNew_NilOption(t *testing.T) {
	r, err := New(nil, WithPoller(&fakePoller{}))
	require.NoError(t, err)
	require.NoError(t, r.Run())
}
