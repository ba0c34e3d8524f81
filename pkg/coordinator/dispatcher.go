// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/api/notifications"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// dispatch routes one inbound line. Malformed lines and unknown tags are
// logged and dropped; they never surface to the operator.
func (c *Coordinator) dispatch(line []byte) {
	frame, err := wire.Decode(line)
	if err != nil {
		log.Warn().Err(err).Bytes("line", line).Msg("dropping malformed line")
		return
	}

	switch frame.Tag {
	case wire.TagCycleProgress:
		c.handleCycleProgress(frame)
	case wire.TagTipData:
		c.handleTipData(frame)
	case wire.TagWorkPosition:
		c.handleWorkPosition(frame)
	case wire.TagWakeup:
		log.Info().Msg("controller wakeup, sending settings")
		c.sync.OnHandshake()
	default:
		log.Warn().Str("tag", string(frame.Tag)).Msg("dropping unknown tag")
	}
}

func (c *Coordinator) handleCycleProgress(frame wire.Frame) {
	i, err := frame.Int()
	if err != nil {
		log.Warn().Err(err).Msg("dropping CP frame")
		return
	}
	c.applyCycleProgress(i)
}

func (c *Coordinator) applyCycleProgress(i int) {
	stages, err := store.StagesFromIndex(i)
	if err != nil {
		log.Warn().Err(err).Msg("dropping cycle progress")
		return
	}
	if err := c.store.SetStages(stages); err != nil {
		log.Error().Err(err).Msg("state not persisted")
	}
	notifications.CycleProgressChanged(c.ns, stages)
}

func (c *Coordinator) handleTipData(frame wire.Frame) {
	var td wire.TipData
	if err := frame.Object(&td); err != nil {
		log.Warn().Err(err).Msg("dropping TD frame")
		return
	}
	// any invalid entry rejects the whole frame
	if err := td.Validate(); err != nil {
		log.Warn().Err(err).Msg("dropping TD frame")
		return
	}

	if td.CycleProgress != nil {
		c.applyCycleProgress(*td.CycleProgress)
	}
	if len(td.Tips) > 0 {
		if err := c.store.ApplyTipTelemetry(td.Tips); err != nil {
			log.Error().Err(err).Msg("state not persisted")
		}
		notifications.TipDataChanged(c.ns, c.store.Snapshot().Tips)
	}
	if td.HomeScreen != nil {
		if err := c.store.SetHomeScreen(*td.HomeScreen); err != nil {
			log.Error().Err(err).Msg("state not persisted")
		}
		notifications.HomeScreenChanged(c.ns, *td.HomeScreen)
	}
}

// handleWorkPosition debounces WP frames: the merge runs once per burst,
// using the most recent payload. Each frame restarts the window.
func (c *Coordinator) handleWorkPosition(frame wire.Frame) {
	var wp wire.WorkPositionTelemetry
	if err := frame.Object(&wp); err != nil {
		log.Warn().Err(err).Msg("dropping WP frame")
		return
	}
	if err := wp.Validate(); err != nil {
		log.Warn().Err(err).Msg("dropping WP frame")
		return
	}

	c.pendingWP = &wp
	// Reset would leave an already fired tick in the channel and cut the
	// next window short; a fresh timer per frame cannot.
	if c.wpTimer != nil {
		c.wpTimer.Stop()
	}
	c.wpTimer = c.clock.NewTimer(debounceWindow)
}

func (c *Coordinator) flushWorkPosition() {
	if c.pendingWP == nil {
		return
	}
	wp := *c.pendingWP
	c.pendingWP = nil

	if err := c.store.MergeWorkPosition(wp); err != nil {
		log.Error().Err(err).Msg("state not persisted")
	}
	notifications.WorkPositionChanged(c.ns, c.store.Snapshot().WorkPosition)
}
