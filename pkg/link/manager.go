// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package link manages the serial connection to the USHS controller:
// opening and closing the port, splitting inbound bytes into lines,
// writing outbound packets, and reconnecting automatically after an
// unexpected drop.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaud is the controller link rate: 115200 8N1, no flow control.
const DefaultBaud = 115200

const (
	reconnectInterval = 5 * time.Second
	readTimeout       = 100 * time.Millisecond
	maxLineLen        = 4096
)

// ErrNotOpen is returned by Send when no port is open. Callers that treat
// a closed link as a silent drop match on this error.
var ErrNotOpen = errors.New("link: not open")

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Errored
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Port is the minimal serial port surface the manager needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a port at path with the given mode. Tests substitute
// an in-memory implementation.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

func defaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// EventKind discriminates link events.
type EventKind int

const (
	EventLine EventKind = iota
	EventConnected
	EventDisconnected
	EventError
)

// Event is one link occurrence delivered to the coordinator loop. Line is
// set for EventLine, Err for EventError.
type Event struct {
	Kind EventKind
	Line []byte
	Path string
	Err  error
}

// Manager owns the serial port and its reconnect policy. All methods are
// safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	factory PortFactory
	clock   clockwork.Clock
	events  chan Event

	port  Port
	path  string
	baud  int
	state State

	autoReconnect   bool
	reconnectCancel chan struct{}

	// gen invalidates read loops and error handling belonging to a
	// previous port after a deliberate teardown.
	gen int
}

// NewManager creates a manager. A nil factory opens real serial ports and a
// nil clock uses wall time.
func NewManager(factory PortFactory, clock clockwork.Clock) *Manager {
	if factory == nil {
		factory = defaultPortFactory
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		factory: factory,
		clock:   clock,
		events:  make(chan Event, 64),
		state:   Disconnected,
	}
}

// Events returns the channel carrying lines and lifecycle events.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Connect opens path at baud (DefaultBaud when baud <= 0) and enables
// auto-reconnect for drops while open. A failed open reports the error to
// the caller and does not retry on its own.
func (m *Manager) Connect(path string, baud int) error {
	if baud <= 0 {
		baud = DefaultBaud
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.baud = baud
	m.autoReconnect = true
	return m.connectLocked()
}

func (m *Manager) connectLocked() error {
	m.cancelReconnectLocked()
	m.closePortLocked()
	m.state = Connecting

	mode := &serial.Mode{
		BaudRate: m.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := m.factory(m.path, mode)
	if err != nil {
		m.state = Errored
		log.Error().Err(err).Str("path", m.path).Msg("serial open failed")
		m.emit(Event{Kind: EventError, Path: m.path, Err: err})
		return fmt.Errorf("link: open %s: %w", m.path, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		m.state = Errored
		m.emit(Event{Kind: EventError, Path: m.path, Err: err})
		return fmt.Errorf("link: set read timeout: %w", err)
	}

	m.port = port
	m.state = Open
	m.gen++
	log.Info().Str("path", m.path).Int("baud", m.baud).Msg("serial link open")
	m.emit(Event{Kind: EventConnected, Path: m.path})
	go m.readLoop(port, m.gen)
	return nil
}

// Disconnect closes the port and disables auto-reconnect, stopping any
// pending retry.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.autoReconnect = false
	m.cancelReconnectLocked()
	m.gen++
	m.closePortLocked()
	m.state = Disconnected
	m.emit(Event{Kind: EventDisconnected, Path: m.path})
}

// Send writes a packet to the open port. A closed link returns ErrNotOpen.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Open || m.port == nil {
		return ErrNotOpen
	}
	if _, err := m.port.Write(data); err != nil {
		log.Error().Err(err).Str("path", m.path).Msg("serial write failed")
		return fmt.Errorf("link: write: %w", err)
	}
	return nil
}

// Status reports the current state and configured path.
func (m *Manager) Status() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.path
}

// Connected reports whether the link is open.
func (m *Manager) Connected() bool {
	s, _ := m.Status()
	return s == Open
}

func (m *Manager) closePortLocked() {
	if m.port != nil {
		_ = m.port.Close()
		m.port = nil
	}
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectCancel != nil {
		close(m.reconnectCancel)
		m.reconnectCancel = nil
	}
}

// scheduleReconnectLocked arms the retry timer. Only an unexpected drop
// while open reaches here; a connect that fails for the caller never does.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnectCancel != nil {
		return
	}
	cancel := make(chan struct{})
	m.reconnectCancel = cancel

	go func() {
		timer := m.clock.NewTimer(reconnectInterval)
		defer timer.Stop()

		select {
		case <-cancel:
			return
		case <-timer.Chan():
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.reconnectCancel == cancel {
			m.reconnectCancel = nil
		}
		if !m.autoReconnect || m.state == Open {
			return
		}
		log.Info().Str("path", m.path).Msg("reconnecting serial link")
		if err := m.connectLocked(); err != nil {
			m.scheduleReconnectLocked()
		}
	}()
}

func (m *Manager) readLoop(port Port, gen int) {
	buf := make([]byte, 1024)
	var acc []byte

	for {
		n, err := port.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for {
				i := bytes.IndexByte(acc, '\n')
				if i < 0 {
					break
				}
				line := make([]byte, i+1)
				copy(line, acc[:i+1])
				acc = acc[i+1:]
				m.emit(Event{Kind: EventLine, Line: line, Path: m.path})
			}
			if len(acc) > maxLineLen {
				log.Warn().Int("len", len(acc)).Msg("dropping oversized partial line")
				acc = acc[:0]
			}
		}
		if err != nil {
			m.handleReadError(gen, err)
			return
		}
	}
}

func (m *Manager) handleReadError(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A deliberate teardown bumps gen before closing the port; the read
	// loop's failure is then expected and already reported.
	if gen != m.gen {
		return
	}

	log.Warn().Err(err).Str("path", m.path).Msg("serial link lost")
	m.closePortLocked()
	m.state = Errored
	m.emit(Event{Kind: EventError, Path: m.path, Err: err})
	m.emit(Event{Kind: EventDisconnected, Path: m.path})
	if m.autoReconnect {
		m.scheduleReconnectLocked()
	}
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		log.Warn().Int("kind", int(ev.Kind)).Msg("link event dropped, consumer too slow")
	}
}
