//go:build linux

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller adapts Linux epoll to the set-based [Poller] contract.
//
// epoll is stateful where the contract is stateless, so each call
// reconciles the kernel-side interest list against the requested sets:
// descriptors that left the snapshot are deleted and every requested
// descriptor is re-armed. The re-arm is unconditional because the cache
// cannot be trusted across a close: the kernel silently drops the
// registration, and a recycled descriptor number would otherwise match
// the stale cache entry and never be registered at all.
type epollPoller struct {
	epfd     int
	interest map[int]uint32 // fd → epoll event mask currently registered
	eventBuf [128]unix.EpollEvent
	closed   bool
}

// NewEpollPoller returns the epoll-backed [Poller]. This is the default
// backend on Linux.
func NewEpollPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll create: %w", err)
	}
	return &epollPoller{
		epfd:     epfd,
		interest: make(map[int]uint32),
	}, nil
}

// newDefaultPoller selects the best available backend for the platform.
func newDefaultPoller() (Poller, error) {
	return NewEpollPoller()
}

func (p *epollPoller) Poll(read, write []int, timeout time.Duration) ([]int, []int, error) {
	if p.closed {
		return nil, nil, ErrPollerClosed
	}

	want := make(map[int]uint32, len(read)+len(write))
	for _, fd := range read {
		want[fd] |= unix.EPOLLIN
	}
	for _, fd := range write {
		want[fd] |= unix.EPOLLOUT
	}

	for fd := range p.interest {
		if _, ok := want[fd]; ok {
			continue
		}
		// ENOENT/EBADF mean the descriptor was closed out from under us;
		// the kernel already dropped it from the interest list.
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT && err != unix.EBADF {
			return nil, nil, fmt.Errorf("reactor: epoll ctl del: %w", err)
		}
		delete(p.interest, fd)
	}
	for fd, events := range want {
		op := unix.EPOLL_CTL_MOD
		if _, ok := p.interest[fd]; !ok {
			op = unix.EPOLL_CTL_ADD
		}
		ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
		err := unix.EpollCtl(p.epfd, op, fd, &ev)
		// The cache can disagree with the kernel under descriptor reuse: a
		// close drops the registration behind our back, and a recycled
		// number can arrive already registered. Cross over and retry.
		if err == unix.ENOENT {
			err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
		} else if err == unix.EEXIST {
			err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reactor: epoll ctl: %w", err)
		}
		p.interest[fd] = events
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	var n int
	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			ms = timeoutMillis(remaining)
		}
		var err error
		n, err = unix.EpollWait(p.epfd, p.eventBuf[:], ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reactor: epoll wait: %w", err)
		}
		break
	}

	var readReady, writeReady []int
	for i := 0; i < n; i++ {
		ev := &p.eventBuf[i]
		fd := int(ev.Fd)
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 && want[fd]&unix.EPOLLIN != 0 {
			readReady = append(readReady, fd)
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 && want[fd]&unix.EPOLLOUT != 0 {
			writeReady = append(writeReady, fd)
		}
	}
	return readReady, writeReady, nil
}

func (p *epollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.interest = nil
	return unix.Close(p.epfd)
}
