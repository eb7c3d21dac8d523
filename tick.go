package reactor

import (
	"github.com/eapache/queue"
)

// tickQueue owns the deferred-tick callbacks: strictly FIFO, no delay,
// and no cancellation handle once enqueued.
type tickQueue struct {
	q *queue.Queue
}

func newTickQueue() *tickQueue {
	return &tickQueue{q: queue.New()}
}

func (t *tickQueue) enqueue(cb func()) {
	t.q.Add(cb)
}

func (t *tickQueue) len() int {
	return t.q.Length()
}

// drain dispatches, in FIFO order, every callback enqueued before the
// call. Callbacks enqueued by a draining callback are left for the next
// drain, which bounds tick work per iteration and keeps a
// self-perpetuating tick from starving timers and I/O.
func (t *tickQueue) drain() {
	n := t.q.Length()
	for i := 0; i < n; i++ {
		t.q.Remove().(func())()
	}
}
