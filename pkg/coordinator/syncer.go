// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package coordinator

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/api/notifications"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// Sender writes an encoded packet to the controller link.
type Sender interface {
	Send(data []byte) error
}

// Synchronizer pushes operator-owned settings to the controller after every
// store mutation and on handshake. Packets built from the store at call
// time; nothing is cached or queued. A closed link drops the packet
// silently: the next mutation or WAKEUP regenerates a fresh one.
type Synchronizer struct {
	store  *store.Store
	sender Sender
	ns     chan<- models.Notification
}

func NewSynchronizer(st *store.Store, sender Sender, ns chan<- models.Notification) *Synchronizer {
	return &Synchronizer{store: st, sender: sender, ns: ns}
}

// OnTipsChanged sends a TIPS packet with all 8 tips.
func (s *Synchronizer) OnTipsChanged() {
	pkt, err := wire.NewTipsPacket(s.store.TipSettings())
	if err != nil {
		log.Error().Err(err).Msg("building TIPS packet")
		return
	}
	s.send(pkt)
}

// OnConfigurationChanged sends a CFG packet with the full configuration.
func (s *Synchronizer) OnConfigurationChanged() {
	pkt, err := wire.NewConfigurationPacket(s.store.Snapshot().Configuration)
	if err != nil {
		log.Error().Err(err).Msg("building CFG packet")
		return
	}
	s.send(pkt)
}

// OnWorkPositionChanged sends a WPU packet with setpoint and speed mode.
// The live current position never travels host to device.
func (s *Synchronizer) OnWorkPositionChanged() {
	wp := s.store.Snapshot().WorkPosition
	pkt, err := wire.NewWorkPositionUpdatePacket(wp.Setpoint, wp.SpeedMode)
	if err != nil {
		log.Error().Err(err).Msg("building WPU packet")
		return
	}
	s.send(pkt)
}

// OnHandshake answers an inbound WAKEUP with a full SETTINGS snapshot.
func (s *Synchronizer) OnHandshake() {
	pkt, err := wire.NewSettingsPacket(s.store.SettingsSnapshot())
	if err != nil {
		log.Error().Err(err).Msg("building SETTINGS packet")
		return
	}
	s.send(pkt)
}

func (s *Synchronizer) send(pkt []byte) {
	err := s.sender.Send(pkt)
	switch {
	case err == nil:
	case errors.Is(err, link.ErrNotOpen):
		log.Debug().Msg("link closed, settings packet dropped")
	default:
		log.Error().Err(err).Msg("sending settings packet")
		notifications.LinkError(s.ns, err.Error())
	}
}
