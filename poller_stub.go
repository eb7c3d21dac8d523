//go:build !linux && !darwin

package reactor

// newDefaultPoller returns an error for unsupported platforms; supply a
// backend via WithPoller instead.
func newDefaultPoller() (Poller, error) {
	return nil, ErrPlatformUnsupported
}
