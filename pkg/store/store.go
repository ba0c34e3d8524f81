// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package store owns the authoritative in-process state of the work cell:
// tip settings, work position, configuration, cycle progress, monitor
// statistics and home screen data. Every mutation merges in place, writes
// the whole document to disk, and only then lets the caller notify the UI.
//
// The store is not safe for concurrent use. All mutation happens on the
// coordinator's event loop.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// DefaultActiveTips is how many tips a fresh installation starts with.
const DefaultActiveTips = 4

// ErrPersist marks failures of the durable write. The in-memory state has
// already been updated when this is returned; the session stays correct but
// changes will not survive a restart.
var ErrPersist = errors.New("store: persist failed")

// Store is the single source of truth for all persisted work cell state.
type Store struct {
	path string
	now  func() time.Time
	doc  Document
}

// Open loads the document at path, or provisions defaults when the file is
// missing or fails to parse. A store is always returned; an unwritable file
// only costs durability, never the session.
func Open(path string) (*Store, error) {
	return open(path, time.Now)
}

func open(path string, now func() time.Time) (*Store, error) {
	s := &Store{path: path, now: now}

	data, err := os.ReadFile(path)
	if err == nil {
		var doc Document
		if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil {
			s.doc = doc
			return s, nil
		} else {
			log.Warn().Err(jsonErr).Str("path", path).
				Msg("state file corrupt, provisioning defaults")
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).
			Msg("state file unreadable, provisioning defaults")
	}

	s.doc = defaultDocument()
	if err := s.persist(); err != nil {
		log.Error().Err(err).Str("path", path).
			Msg("could not persist default state, continuing in memory")
	}
	return s, nil
}

func defaultDocument() Document {
	var doc Document
	for i := range doc.Tips {
		doc.Tips[i].Active = i < DefaultActiveTips
	}
	doc.WorkPosition.SpeedMode = wire.SpeedRapid
	doc.WorkPosition.TipDistances = make(map[int]float64)
	doc.CycleProgress, _ = StagesFromIndex(-1)
	doc.HomeScreen = wire.HomeScreen{
		BannerText:     "System Is Ready",
		ProcessingText: "Processing...",
		SpinnerActive:  true,
		TimeText:       "∼1m 46sec",
	}
	return doc
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", ErrPersist, err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersist, s.path, err)
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	return s.doc.Clone()
}

// SetStages replaces the cycle progress vector.
func (s *Store) SetStages(stages Stages) error {
	s.doc.CycleProgress = stages
	return s.persist()
}

// ApplyTipTelemetry merges live tip readings. Only the live fields of each
// named tip change; setpoints and active flags are untouched, and tips not
// present in the slice keep their previous readings. The caller validates
// tip numbers before this point.
func (s *Store) ApplyTipTelemetry(tips []wire.TipTelemetry) error {
	for _, t := range tips {
		rec := &s.doc.Tips[t.TipNumber-1]
		rec.Joules = t.Joules
		rec.Distance = t.Distance
		rec.HeatPercentage = t.HeatPercentage
	}
	return s.persist()
}

// SetHomeScreen replaces the home screen section.
func (s *Store) SetHomeScreen(hs wire.HomeScreen) error {
	s.doc.HomeScreen = hs
	return s.persist()
}

// MergeWorkPosition folds work position telemetry into the stored section.
// Present fields overwrite, absent fields are retained. The controller
// routinely omits setpoint on position updates; losing the stored setpoint
// here would desync the operator target.
func (s *Store) MergeWorkPosition(wp wire.WorkPositionTelemetry) error {
	sec := &s.doc.WorkPosition
	if wp.CurrentPosition != nil {
		sec.CurrentPosition = *wp.CurrentPosition
	}
	if wp.Setpoint != nil {
		sec.Setpoint = *wp.Setpoint
	}
	if wp.SpeedMode != nil {
		sec.SpeedMode = *wp.SpeedMode
	}
	for n, d := range wp.TipDistances {
		sec.TipDistances[n] = d
	}
	sec.UpdatedAt = s.now()
	return s.persist()
}

// UpdateTipSettings applies operator-owned tip settings. Live telemetry
// fields of the named tips are untouched.
func (s *Store) UpdateTipSettings(tips []wire.TipSetting) error {
	for _, t := range tips {
		if !wire.ValidTipNumber(t.TipNumber) {
			return fmt.Errorf("%w: %d", wire.ErrBadTipNumber, t.TipNumber)
		}
	}
	for _, t := range tips {
		rec := &s.doc.Tips[t.TipNumber-1]
		rec.Active = t.Active
		rec.EnergySetpoint = t.EnergySetpoint
		rec.DistanceSetpoint = t.DistanceSetpoint
		rec.HeatStartDelay = t.HeatStartDelay
	}
	return s.persist()
}

// UpdateConfiguration applies named configuration values. Any unknown key
// rejects the whole update; nothing is partially applied.
func (s *Store) UpdateConfiguration(changes map[string]float64) error {
	cfg := s.doc.Configuration
	for key, value := range changes {
		if err := cfg.Set(key, value); err != nil {
			return err
		}
	}
	s.doc.Configuration = cfg
	return s.persist()
}

// UpdateWorkPositionTarget sets the operator-owned setpoint and/or speed
// mode. Nil arguments leave the corresponding field alone.
func (s *Store) UpdateWorkPositionTarget(setpoint *float64, speedMode *string) error {
	if speedMode != nil && !wire.ValidSpeedMode(*speedMode) {
		return fmt.Errorf("%w: %q", wire.ErrBadSpeedMode, *speedMode)
	}
	if setpoint != nil {
		s.doc.WorkPosition.Setpoint = *setpoint
	}
	if speedMode != nil {
		s.doc.WorkPosition.SpeedMode = *speedMode
	}
	s.doc.WorkPosition.UpdatedAt = s.now()
	return s.persist()
}

// UpdateMonitor replaces the monitor statistics section.
func (s *Store) UpdateMonitor(m Monitor) error {
	s.doc.Monitor = m
	return s.persist()
}

// TipSettings returns the operator-owned view of all 8 tips, in tip order.
func (s *Store) TipSettings() []wire.TipSetting {
	out := make([]wire.TipSetting, wire.TipCount)
	for i, rec := range s.doc.Tips {
		out[i] = wire.TipSetting{
			TipNumber:        i + 1,
			Active:           rec.Active,
			EnergySetpoint:   rec.EnergySetpoint,
			DistanceSetpoint: rec.DistanceSetpoint,
			HeatStartDelay:   rec.HeatStartDelay,
		}
	}
	return out
}

// SettingsSnapshot assembles the full settings view sent on handshake.
func (s *Store) SettingsSnapshot() wire.Settings {
	return wire.Settings{
		WorkPosition: wire.WorkPositionSetting{
			Setpoint:  s.doc.WorkPosition.Setpoint,
			SpeedMode: s.doc.WorkPosition.SpeedMode,
		},
		Tips:          s.TipSettings(),
		Configuration: s.doc.Configuration,
	}
}
