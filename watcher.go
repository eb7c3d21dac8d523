package reactor

import (
	"sort"
)

// FDCallback is invoked with the watched descriptor when it polls ready
// for the registered direction.
type FDCallback func(fd int)

// fdWatcher holds the at-most-one callback per direction for one
// descriptor.
type fdWatcher struct {
	read  FDCallback
	write FDCallback
}

// watcherRegistry owns the descriptor→callback mapping. Installing a
// direction that is already watched replaces the prior callback; removals
// are idempotent no-ops when absent.
type watcherRegistry struct {
	fds map[int]*fdWatcher
}

func newWatcherRegistry() *watcherRegistry {
	return &watcherRegistry{fds: make(map[int]*fdWatcher)}
}

func (w *watcherRegistry) watchRead(fd int, cb FDCallback) {
	wt, ok := w.fds[fd]
	if !ok {
		wt = &fdWatcher{}
		w.fds[fd] = wt
	}
	wt.read = cb
}

func (w *watcherRegistry) watchWrite(fd int, cb FDCallback) {
	wt, ok := w.fds[fd]
	if !ok {
		wt = &fdWatcher{}
		w.fds[fd] = wt
	}
	wt.write = cb
}

func (w *watcherRegistry) unwatchRead(fd int) {
	if wt, ok := w.fds[fd]; ok {
		wt.read = nil
		if wt.write == nil {
			delete(w.fds, fd)
		}
	}
}

func (w *watcherRegistry) unwatchWrite(fd int) {
	if wt, ok := w.fds[fd]; ok {
		wt.write = nil
		if wt.read == nil {
			delete(w.fds, fd)
		}
	}
}

func (w *watcherRegistry) unwatchAll(fd int) {
	delete(w.fds, fd)
}

func (w *watcherRegistry) len() int {
	return len(w.fds)
}

func (w *watcherRegistry) readCallback(fd int) FDCallback {
	if wt, ok := w.fds[fd]; ok {
		return wt.read
	}
	return nil
}

func (w *watcherRegistry) writeCallback(fd int) FDCallback {
	if wt, ok := w.fds[fd]; ok {
		return wt.write
	}
	return nil
}

// snapshot returns point-in-time copies of the watched descriptor sets,
// sorted ascending so dispatch order is deterministic. Registry mutation
// by callbacks fired later in the same iteration never aliases into a
// snapshot already taken.
func (w *watcherRegistry) snapshot() (read, write []int) {
	for fd, wt := range w.fds {
		if wt.read != nil {
			read = append(read, fd)
		}
		if wt.write != nil {
			write = append(write, fd)
		}
	}
	sort.Ints(read)
	sort.Ints(write)
	return read, write
}
