// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"github.com/joeycumines/logiface"
)

// reactorOptions holds configuration options for Reactor creation.
type reactorOptions struct {
	poller Poller
	logger *logiface.Logger[logiface.Event]
}

// --- Reactor Options ---

// Option configures a Reactor instance.
type Option interface {
	applyReactor(*reactorOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyReactorFunc func(*reactorOptions) error
}

func (o *optionImpl) applyReactor(opts *reactorOptions) error {
	return o.applyReactorFunc(opts)
}

// WithPoller supplies the readiness poller backing the reactor. The engine
// is generic over the [Poller] contract and never branches on backend
// identity; any implementation may be injected, including test doubles.
// When omitted, New selects the best native backend for the platform.
//
// The reactor takes ownership of the poller: Close releases it.
func WithPoller(p Poller) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		opts.poller = p
		return nil
	}}
}

// WithLogger attaches a structured logger to the reactor. A nil logger
// (also the default) disables logging; logiface builders are nil-safe, so
// the hot path pays only a level check.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies Option instances to reactorOptions.
func resolveOptions(opts []Option) (*reactorOptions, error) {
	cfg := &reactorOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyReactor(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
