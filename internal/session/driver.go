// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "pulse/internal/log"
)

// DefaultTickInterval is roughly one display refresh.
const DefaultTickInterval = 16 * time.Millisecond

// ErrDriverStopped is returned by commands issued after Run has returned.
var ErrDriverStopped = errors.New("session: driver stopped")

type command struct {
	fn   func(loopCtx context.Context)
	done chan struct{}
}

// Driver owns a Controller on one goroutine. It ticks the controller at a fixed
// interval and runs Start/Stop requests from other goroutines between ticks.
type Driver struct {
	ctrl     *Controller
	interval time.Duration
	commands chan command
	done     chan struct{}
	doneOnce sync.Once
}

// NewDriver returns a driver ticking ctrl every interval. Non-positive intervals fall
// back to DefaultTickInterval.
func NewDriver(ctrl *Controller, interval time.Duration) *Driver {
	if interval <= 0 {
		applog.Warnf("Session: Invalid tick interval %s, defaulting to %s", interval, DefaultTickInterval)
		interval = DefaultTickInterval
	}
	return &Driver{
		ctrl:     ctrl,
		interval: interval,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
}

// Controller returns the driven controller. Its Snapshot and State are safe to read
// from any goroutine; everything else must go through the driver.
func (d *Driver) Controller() *Controller {
	return d.ctrl
}

// Run drives the controller until ctx is cancelled, then stops the session.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer func() {
		ticker.Stop()
		d.ctrl.Stop()
		d.doneOnce.Do(func() { close(d.done) })
		applog.Infof("Session: Driver stopped")
	}()

	applog.Infof("Session: Driver running (tick %s)", d.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			d.ctrl.Tick(now)
		case cmd := <-d.commands:
			cmd.fn(ctx)
			close(cmd.done)
		}
	}
}

// Start requests a new session. Acquisition is bound to the driver's lifetime, not
// to ctx, which only bounds the wait for the request to be handed over.
func (d *Driver) Start(ctx context.Context) error {
	return d.do(ctx, func(loopCtx context.Context) {
		d.ctrl.Start(loopCtx)
	})
}

// Stop requests the session to end and returns once it has.
func (d *Driver) Stop(ctx context.Context) error {
	return d.do(ctx, func(context.Context) {
		d.ctrl.Stop()
	})
}

func (d *Driver) do(ctx context.Context, fn func(context.Context)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case d.commands <- cmd:
	case <-d.done:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-d.done:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
