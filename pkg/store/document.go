// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

// TipRecord is the full per-tip state: the operator-owned setpoints plus the
// live telemetry last reported by the controller.
type TipRecord struct {
	Active           bool    `json:"active"`
	EnergySetpoint   float64 `json:"energy_setpoint"`
	DistanceSetpoint float64 `json:"distance_setpoint"`
	HeatStartDelay   float64 `json:"heat_start_delay"`
	Joules           float64 `json:"joules"`
	Distance         float64 `json:"distance"`
	HeatPercentage   float64 `json:"heat_percentage"`
}

// WorkPosition is the stored work position section. CurrentPosition and
// TipDistances are live telemetry; Setpoint and SpeedMode are operator-owned.
type WorkPosition struct {
	CurrentPosition float64         `json:"current_position"`
	Setpoint        float64         `json:"setpoint"`
	SpeedMode       string          `json:"speed_mode"`
	TipDistances    map[int]float64 `json:"tip_distances"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Monitor holds cycle outcome statistics. History is kept opaque; the UI
// layer owns its shape.
type Monitor struct {
	Total        int             `json:"total"`
	Successful   int             `json:"successful"`
	Unsuccessful int             `json:"unsuccessful"`
	History      json.RawMessage `json:"history,omitempty"`
}

// Document is the complete persisted state. On disk the tips live under
// numeric string keys "1".."8" next to the named sections.
type Document struct {
	Tips          [wire.TipCount]TipRecord
	WorkPosition  WorkPosition
	Configuration wire.Configuration
	CycleProgress Stages
	HomeScreen    wire.HomeScreen
	Monitor       Monitor
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, wire.TipCount+5)

	for i, tip := range d.Tips {
		b, err := json.Marshal(tip)
		if err != nil {
			return nil, err
		}
		out[strconv.Itoa(i+1)] = b
	}

	sections := map[string]any{
		"work_position":  d.WorkPosition,
		"configuration":  d.Configuration,
		"cycle_progress": d.CycleProgress,
		"home_screen":    d.HomeScreen,
		"monitor":        d.Monitor,
	}
	for name, v := range sections {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}

	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for i := 0; i < wire.TipCount; i++ {
		key := strconv.Itoa(i + 1)
		b, ok := raw[key]
		if !ok {
			return fmt.Errorf("store: document missing tip record %q", key)
		}
		if err := json.Unmarshal(b, &d.Tips[i]); err != nil {
			return fmt.Errorf("store: tip record %q: %w", key, err)
		}
	}

	sections := map[string]any{
		"work_position":  &d.WorkPosition,
		"configuration":  &d.Configuration,
		"cycle_progress": &d.CycleProgress,
		"home_screen":    &d.HomeScreen,
		"monitor":        &d.Monitor,
	}
	for name, v := range sections {
		b, ok := raw[name]
		if !ok {
			return fmt.Errorf("store: document missing section %q", name)
		}
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("store: section %q: %w", name, err)
		}
	}

	if d.WorkPosition.TipDistances == nil {
		d.WorkPosition.TipDistances = make(map[int]float64)
	}
	return nil
}

// Clone returns a deep copy safe to hand outside the store.
func (d Document) Clone() Document {
	out := d
	out.WorkPosition.TipDistances = make(map[int]float64, len(d.WorkPosition.TipDistances))
	for k, v := range d.WorkPosition.TipDistances {
		out.WorkPosition.TipDistances[k] = v
	}
	if d.Monitor.History != nil {
		out.Monitor.History = make(json.RawMessage, len(d.Monitor.History))
		copy(out.Monitor.History, d.Monitor.History)
	}
	return out
}
