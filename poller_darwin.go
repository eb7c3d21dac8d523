//go:build darwin

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller adapts kqueue to the set-based [Poller] contract.
//
// kqueue tracks one filter per (descriptor, direction), so read and write
// interest are reconciled independently: filters for descriptors that
// left the snapshot are deleted, and every requested descriptor is
// re-added level-triggered (EV_ADD|EV_ENABLE) each call. EV_ADD on an
// existing filter is an update, and the unconditional re-add is what
// keeps a closed-and-recycled descriptor number from matching a stale
// cache entry while the kernel-side filter is long gone.
type kqueuePoller struct {
	kq       int
	readSet  map[int]struct{} // fds with a registered EVFILT_READ filter
	writeSet map[int]struct{} // fds with a registered EVFILT_WRITE filter
	eventBuf [128]unix.Kevent_t
	closed   bool
}

// NewKqueuePoller returns the kqueue-backed [Poller]. This is the default
// backend on Darwin.
func NewKqueuePoller() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("reactor: kqueue create: %w", err)
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{
		kq:       kq,
		readSet:  make(map[int]struct{}),
		writeSet: make(map[int]struct{}),
	}, nil
}

// newDefaultPoller selects the best available backend for the platform.
func newDefaultPoller() (Poller, error) {
	return NewKqueuePoller()
}

// applyChange registers or deletes a single kqueue filter.
func (p *kqueuePoller) applyChange(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// reconcile diffs one direction's registered filters against the
// requested set.
func (p *kqueuePoller) reconcile(have map[int]struct{}, want []int, filter int16) error {
	wanted := make(map[int]struct{}, len(want))
	for _, fd := range want {
		wanted[fd] = struct{}{}
	}
	for fd := range have {
		if _, ok := wanted[fd]; ok {
			continue
		}
		// ENOENT/EBADF mean the descriptor was closed out from under us;
		// kqueue already dropped the filter.
		if err := p.applyChange(fd, filter, unix.EV_DELETE); err != nil && err != unix.ENOENT && err != unix.EBADF {
			return fmt.Errorf("reactor: kevent delete: %w", err)
		}
		delete(have, fd)
	}
	for fd := range wanted {
		// Unconditional: closing a descriptor drops its filter behind the
		// cache's back, so presence in have proves nothing.
		if err := p.applyChange(fd, filter, unix.EV_ADD|unix.EV_ENABLE); err != nil {
			return fmt.Errorf("reactor: kevent add: %w", err)
		}
		have[fd] = struct{}{}
	}
	return nil
}

func (p *kqueuePoller) Poll(read, write []int, timeout time.Duration) ([]int, []int, error) {
	if p.closed {
		return nil, nil, ErrPollerClosed
	}

	if err := p.reconcile(p.readSet, read, unix.EVFILT_READ); err != nil {
		return nil, nil, err
	}
	if err := p.reconcile(p.writeSet, write, unix.EVFILT_WRITE); err != nil {
		return nil, nil, err
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	var n int
	for {
		var ts *unix.Timespec
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			t := unix.NsecToTimespec(remaining.Nanoseconds())
			ts = &t
		}
		var err error
		n, err = unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reactor: kevent wait: %w", err)
		}
		break
	}

	var readReady, writeReady []int
	for i := 0; i < n; i++ {
		ev := &p.eventBuf[i]
		fd := int(ev.Ident)
		switch ev.Filter {
		case unix.EVFILT_READ:
			readReady = append(readReady, fd)
		case unix.EVFILT_WRITE:
			writeReady = append(writeReady, fd)
		}
	}
	return readReady, writeReady, nil
}

func (p *kqueuePoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.readSet = nil
	p.writeSet = nil
	return unix.Close(p.kq)
}
