//go:build linux || darwin

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback backend, built on the synchronous
// poll(2) multiplexing syscall. It carries no registration state: each
// call builds the pollfd set from scratch, which keeps it trivially
// correct at the cost of O(n) setup per call.
type pollPoller struct {
	fds    []unix.PollFd // scratch buffer, reused across calls
	closed bool
}

// NewPollPoller returns the portable poll(2)-based [Poller]. Prefer the
// default backend selected by [New]; this fallback exists for platforms
// or descriptors the native backends cannot service.
func NewPollPoller() (Poller, error) {
	return &pollPoller{}, nil
}

func (p *pollPoller) Poll(read, write []int, timeout time.Duration) ([]int, []int, error) {
	if p.closed {
		return nil, nil, ErrPollerClosed
	}

	p.fds = p.fds[:0]
	idx := make(map[int]int, len(read)+len(write))
	for _, fd := range read {
		i, ok := idx[fd]
		if !ok {
			i = len(p.fds)
			idx[fd] = i
			p.fds = append(p.fds, unix.PollFd{Fd: int32(fd)})
		}
		p.fds[i].Events |= unix.POLLIN
	}
	for _, fd := range write {
		i, ok := idx[fd]
		if !ok {
			i = len(p.fds)
			idx[fd] = i
			p.fds = append(p.fds, unix.PollFd{Fd: int32(fd)})
		}
		p.fds[i].Events |= unix.POLLOUT
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
		n, err = unix.Poll(p.fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reactor: poll: %w", err)
		}
		break
	}
	if n == 0 {
		return nil, nil, nil
	}

	var readReady, writeReady []int
	for i := range p.fds {
		pfd := &p.fds[i]
		if pfd.Revents == 0 {
			continue
		}
		// POLLHUP/POLLERR wake the relevant direction so callers observe
		// closure and error conditions as readiness.
		if pfd.Events&unix.POLLIN != 0 && pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			readReady = append(readReady, int(pfd.Fd))
		}
		if pfd.Events&unix.POLLOUT != 0 && pfd.Revents&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			writeReady = append(writeReady, int(pfd.Fd))
		}
	}
	return readReady, writeReady, nil
}

func (p *pollPoller) Close() error {
	p.closed = true
	p.fds = nil
	return nil
}
