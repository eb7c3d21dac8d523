package reactor

import (
	"container/heap"
	"time"
)

// TimerID is an opaque handle to a scheduled timer. IDs increase
// monotonically and are never reused for the lifetime of the registry, so
// a stale handle can never alias a newer timer.
type TimerID uint64

// TimerCallback is invoked when a timer fires. The fired timer's handle
// is passed so callbacks can cancel or query it without capturing the
// registration result; callbacks that don't need it ignore the argument.
type TimerCallback func(TimerID)

// timerRecord is the authoritative state of one live timer. Records are
// owned exclusively by the registry; callers only ever hold TimerIDs.
type timerRecord struct {
	deadline time.Time
	callback TimerCallback
	interval time.Duration
	seq      uint64 // current schedule sequence; older heap entries are stale
	periodic bool
}

// timerEntry is one scheduled firing on the heap. Cancellation and
// periodic rescheduling invalidate entries in place (the record's seq
// moves on) rather than re-sift the heap, so removal during iteration
// never invalidates an in-flight traversal.
type timerEntry struct {
	deadline time.Time
	seq      uint64
	id       TimerID
}

// timerHeap is a min-heap of scheduled firings, ordered by deadline with
// ties broken by schedule sequence (insertion order).
type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timerEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// timerRegistry owns all scheduled timers.
type timerRegistry struct {
	records map[TimerID]*timerRecord
	heap    timerHeap
	nextID  TimerID
	nextSeq uint64
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{
		records: make(map[TimerID]*timerRecord),
		nextID:  1, // 0 is never a valid handle
	}
}

// add registers a timer firing at now+interval and returns its handle.
func (t *timerRegistry) add(interval time.Duration, periodic bool, cb TimerCallback, now time.Time) TimerID {
	id := t.nextID
	t.nextID++
	rec := &timerRecord{
		deadline: now.Add(interval),
		callback: cb,
		interval: interval,
		periodic: periodic,
	}
	t.records[id] = rec
	t.push(id, rec)
	return id
}

// push schedules the record's next firing on the heap under a fresh
// sequence, invalidating any earlier entry for the same timer.
func (t *timerRegistry) push(id TimerID, rec *timerRecord) {
	t.nextSeq++
	rec.seq = t.nextSeq
	heap.Push(&t.heap, timerEntry{deadline: rec.deadline, seq: rec.seq, id: id})
}

// cancel deactivates and removes a timer. Canceling an unknown or
// already-fired handle is a no-op, never an error.
func (t *timerRegistry) cancel(id TimerID) {
	delete(t.records, id)
}

// isActive reports whether the handle maps to a live timer. A one-shot
// timer is inactive the instant it is popped due, even before its
// callback runs.
func (t *timerRegistry) isActive(id TimerID) bool {
	_, ok := t.records[id]
	return ok
}

func (t *timerRegistry) len() int {
	return len(t.records)
}

// prune discards stale heap entries (canceled or rescheduled timers)
// from the top of the heap.
func (t *timerRegistry) prune() {
	for len(t.heap) > 0 {
		e := &t.heap[0]
		if rec, ok := t.records[e.id]; ok && rec.seq == e.seq {
			return
		}
		heap.Pop(&t.heap)
	}
}

// nextDeadline returns the earliest deadline over active timers, and
// false if none exist.
func (t *timerRegistry) nextDeadline() (time.Time, bool) {
	t.prune()
	if len(t.heap) == 0 {
		return time.Time{}, false
	}
	return t.heap[0].deadline, true
}

// dueTimer is one fired timer handed to the engine for dispatch.
type dueTimer struct {
	callback TimerCallback
	id       TimerID
	periodic bool
}

// popDue removes and returns every timer due by now, in ascending
// deadline order with ties broken by insertion order. One-shot timers are
// deactivated; periodic timers are rescheduled to now+interval. The
// reschedule base is the pop time, not the previous deadline, so a slow
// callback delays subsequent firings instead of causing a catch-up burst.
func (t *timerRegistry) popDue(now time.Time) []dueTimer {
	var due []dueTimer
	for {
		t.prune()
		if len(t.heap) == 0 || t.heap[0].deadline.After(now) {
			return due
		}
		e := heap.Pop(&t.heap).(timerEntry)
		rec := t.records[e.id] // live: prune just validated the top entry
		if rec.periodic {
			rec.deadline = now.Add(rec.interval)
			t.push(e.id, rec)
		} else {
			delete(t.records, e.id)
		}
		due = append(due, dueTimer{callback: rec.callback, id: e.id, periodic: rec.periodic})
	}
}
