// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package coordinator runs the single event loop that ties the serial link,
// the state store and the API together. All store mutation happens on this
// loop; link events, API calls and the work position debounce timer are the
// only inputs.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/api/notifications"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// debounceWindow collapses bursts of WP frames into one merge-persist-notify.
const debounceWindow = 100 * time.Millisecond

// Coordinator owns the event loop. Link control methods talk to the link
// manager directly; everything that touches the store goes through the loop.
type Coordinator struct {
	store *store.Store
	link  *link.Manager
	clock clockwork.Clock
	ns    chan<- models.Notification
	sync  *Synchronizer

	calls   chan func()
	stopped chan struct{}

	pendingWP *wire.WorkPositionTelemetry
	wpTimer   clockwork.Timer
}

// New wires a coordinator. A nil clock uses wall time.
func New(
	st *store.Store,
	lk *link.Manager,
	clock clockwork.Clock,
	ns chan<- models.Notification,
) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		store:   st,
		link:    lk,
		clock:   clock,
		ns:      ns,
		sync:    NewSynchronizer(st, lk, ns),
		calls:   make(chan func(), 16),
		stopped: make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled. It must be running for any
// store-touching method to complete.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.stopped)

	for {
		var timerC <-chan time.Time
		if c.wpTimer != nil {
			timerC = c.wpTimer.Chan()
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-c.link.Events():
			c.handleLinkEvent(ev)
		case fn := <-c.calls:
			fn()
		case <-timerC:
			c.wpTimer = nil
			c.flushWorkPosition()
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case c.calls <- wrapped:
	case <-c.stopped:
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

func (c *Coordinator) handleLinkEvent(ev link.Event) {
	switch ev.Kind {
	case link.EventConnected:
		notifications.LinkConnected(c.ns, ev.Path)
	case link.EventDisconnected:
		notifications.LinkDisconnected(c.ns, ev.Path)
	case link.EventError:
		notifications.LinkError(c.ns, ev.Err.Error())
	case link.EventLine:
		c.dispatch(ev.Line)
	}
}

// persistResult swallows persistence failures after logging them. The
// in-memory state is already correct; durability is all that was lost.
// Validation failures pass through to the caller.
func persistResult(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrPersist) {
		log.Error().Err(err).Msg("state not persisted")
		return nil
	}
	return err
}

// Connect opens the link. Safe to call from any goroutine; the open itself
// never blocks the event loop.
func (c *Coordinator) Connect(path string, baud int) error {
	return c.link.Connect(path, baud)
}

// Disconnect closes the link and stops reconnecting.
func (c *Coordinator) Disconnect() {
	c.link.Disconnect()
}

// Status reports the link state and configured path.
func (c *Coordinator) Status() (link.State, string) {
	return c.link.Status()
}

// Ports lists candidate serial endpoints.
func (c *Coordinator) Ports() []string {
	return link.ListCandidates()
}

// SendRaw writes an already-encoded packet to the link.
func (c *Coordinator) SendRaw(data []byte) error {
	return c.link.Send(data)
}

// Snapshot returns a copy of the full store document.
func (c *Coordinator) Snapshot() store.Document {
	var doc store.Document
	c.do(func() {
		doc = c.store.Snapshot()
	})
	return doc
}

// UpdateTips applies operator tip settings, then pushes them to the
// controller.
func (c *Coordinator) UpdateTips(tips []wire.TipSetting) error {
	var err error
	c.do(func() {
		if err = persistResult(c.store.UpdateTipSettings(tips)); err != nil {
			return
		}
		notifications.TipDataChanged(c.ns, c.store.Snapshot().Tips)
		c.sync.OnTipsChanged()
	})
	return err
}

// UpdateConfiguration applies named configuration values, then pushes the
// full configuration to the controller.
func (c *Coordinator) UpdateConfiguration(changes map[string]float64) error {
	var err error
	c.do(func() {
		if err = persistResult(c.store.UpdateConfiguration(changes)); err != nil {
			return
		}
		c.sync.OnConfigurationChanged()
	})
	return err
}

// UpdateWorkPosition sets the operator setpoint and/or speed mode, then
// pushes the target to the controller.
func (c *Coordinator) UpdateWorkPosition(setpoint *float64, speedMode *string) error {
	var err error
	c.do(func() {
		if err = persistResult(c.store.UpdateWorkPositionTarget(setpoint, speedMode)); err != nil {
			return
		}
		notifications.WorkPositionChanged(c.ns, c.store.Snapshot().WorkPosition)
		c.sync.OnWorkPositionChanged()
	})
	return err
}

// UpdateMonitor replaces the monitor statistics.
func (c *Coordinator) UpdateMonitor(m store.Monitor) error {
	var err error
	c.do(func() {
		if err = persistResult(c.store.UpdateMonitor(m)); err != nil {
			return
		}
		notifications.MonitorChanged(c.ns, m)
	})
	return err
}

// SetSpeedMode stores the axis speed mode and commands the controller.
func (c *Coordinator) SetSpeedMode(mode string) error {
	pkt, err := wire.NewSpeedModePacket(mode)
	if err != nil {
		return err
	}
	c.do(func() {
		if err = persistResult(c.store.UpdateWorkPositionTarget(nil, &mode)); err != nil {
			return
		}
		notifications.WorkPositionChanged(c.ns, c.store.Snapshot().WorkPosition)
		c.sync.send(pkt)
	})
	return err
}

// Jog sends a jog button press or release. Unlike settings packets, jog
// commands fail loudly when the link is down; the operator needs to know
// the axis is not moving.
func (c *Coordinator) Jog(button string, pressed bool) error {
	pkt, err := wire.NewButtonPacket(button, pressed)
	if err != nil {
		return err
	}
	return c.link.Send(pkt)
}

// SetWorkPosition commands the controller to latch the current position.
func (c *Coordinator) SetWorkPosition() error {
	pkt, err := wire.NewSetWorkPositionPacket()
	if err != nil {
		return err
	}
	return c.link.Send(pkt)
}
