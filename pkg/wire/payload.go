// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package wire

import (
	"errors"
	"fmt"
)

// Speed modes for the work position axis.
const (
	SpeedRapid = "rapid"
	SpeedFine  = "fine"
)

// TipCount is the fixed number of heating tips in the work cell.
const TipCount = 8

// Tip distance domain in millimeters.
const (
	TipDistanceMin = 0.0
	TipDistanceMax = 8.0
)

var (
	ErrBadTipNumber   = errors.New("wire: tip number out of range")
	ErrBadSpeedMode   = errors.New("wire: invalid speed mode")
	ErrBadTipDistance = errors.New("wire: tip distance out of range")
	ErrBadStageIndex  = errors.New("wire: cycle stage index out of range")
	ErrBadButton      = errors.New("wire: invalid jog button")
)

// TipTelemetry is one live tip entry of a TD frame. It never carries
// setpoints; those are owned by the operator side.
type TipTelemetry struct {
	TipNumber      int     `json:"tip_number"`
	Joules         float64 `json:"joules"`
	Distance       float64 `json:"distance"`
	HeatPercentage float64 `json:"heat_percentage"`
}

// HomeScreen carries the display fields of the operator home screen.
type HomeScreen struct {
	BannerText     string  `json:"banner_text"`
	ProcessingText string  `json:"processing_text"`
	SpinnerActive  bool    `json:"spinner_active"`
	Percentage     float64 `json:"percentage"`
	TimeText       string  `json:"time_text"`
	SliderPosition float64 `json:"slider_position"`
}

// TipData is the payload of a TD frame. All fields are optional; absent
// fields leave the corresponding stored state untouched.
type TipData struct {
	CycleProgress *int           `json:"cycle_progress,omitempty"`
	Tips          []TipTelemetry `json:"tips,omitempty"`
	HomeScreen    *HomeScreen    `json:"home_screen,omitempty"`
}

// WorkPositionTelemetry is the payload of a WP frame. Every field present
// overwrites the stored value; every field absent is retained. The
// controller routinely omits setpoint, so pointer fields matter here.
type WorkPositionTelemetry struct {
	CurrentPosition *float64        `json:"current_position,omitempty"`
	Setpoint        *float64        `json:"setpoint,omitempty"`
	SpeedMode       *string         `json:"speed_mode,omitempty"`
	TipDistances    map[int]float64 `json:"tip_distances,omitempty"`
}

// TipSetting is one operator-owned tip entry of TIPS and SETTINGS packets.
type TipSetting struct {
	TipNumber        int     `json:"tip_number"`
	Active           bool    `json:"active"`
	EnergySetpoint   float64 `json:"energy_setpoint"`
	DistanceSetpoint float64 `json:"distance_setpoint"`
	HeatStartDelay   float64 `json:"heat_start_delay"`
}

// Configuration is the fixed set of named process parameters.
type Configuration struct {
	WeldTime           float64 `json:"weld_time"`
	PulseEnergy        float64 `json:"pulse_energy"`
	CoolTime           float64 `json:"cool_time"`
	PresenceHeight     float64 `json:"presence_height"`
	BossToleranceMinus float64 `json:"boss_tolerance_minus"`
	BossTolerancePlus  float64 `json:"boss_tolerance_plus"`
}

// Set assigns a configuration field by its wire name. Unknown keys are
// rejected rather than silently accepted.
func (c *Configuration) Set(key string, value float64) error {
	switch key {
	case "weld_time":
		c.WeldTime = value
	case "pulse_energy":
		c.PulseEnergy = value
	case "cool_time":
		c.CoolTime = value
	case "presence_height":
		c.PresenceHeight = value
	case "boss_tolerance_minus":
		c.BossToleranceMinus = value
	case "boss_tolerance_plus":
		c.BossTolerancePlus = value
	default:
		return fmt.Errorf("wire: unknown configuration key %q", key)
	}
	return nil
}

// WorkPositionSetting is the operator-owned part of the work position,
// as carried by WPU and SETTINGS packets. Never includes the live position.
type WorkPositionSetting struct {
	Setpoint  float64 `json:"setpoint"`
	SpeedMode string  `json:"speed_mode"`
}

// Settings is the full snapshot sent in reply to WAKEUP.
type Settings struct {
	WorkPosition  WorkPositionSetting `json:"work_position"`
	Tips          []TipSetting        `json:"tips"`
	Configuration Configuration       `json:"configuration"`
}

// ValidSpeedMode reports whether s is a recognized speed mode.
func ValidSpeedMode(s string) bool {
	return s == SpeedRapid || s == SpeedFine
}

// ValidTipNumber reports whether n addresses one of the fixed tips.
func ValidTipNumber(n int) bool {
	return n >= 1 && n <= TipCount
}

// Validate checks a TD payload at the dispatch boundary. A payload with any
// invalid entry is rejected whole; no partial application.
func (td TipData) Validate() error {
	if td.CycleProgress != nil {
		if i := *td.CycleProgress; i < -1 || i > 6 {
			return fmt.Errorf("%w: %d", ErrBadStageIndex, i)
		}
	}
	if len(td.Tips) > TipCount {
		return fmt.Errorf("wire: too many tip entries: %d", len(td.Tips))
	}
	for _, t := range td.Tips {
		if !ValidTipNumber(t.TipNumber) {
			return fmt.Errorf("%w: %d", ErrBadTipNumber, t.TipNumber)
		}
	}
	return nil
}

// Validate checks a WP payload at the dispatch boundary.
func (wp WorkPositionTelemetry) Validate() error {
	if wp.SpeedMode != nil && !ValidSpeedMode(*wp.SpeedMode) {
		return fmt.Errorf("%w: %q", ErrBadSpeedMode, *wp.SpeedMode)
	}
	for n, d := range wp.TipDistances {
		if !ValidTipNumber(n) {
			return fmt.Errorf("%w: %d", ErrBadTipNumber, n)
		}
		if d < TipDistanceMin || d > TipDistanceMax {
			return fmt.Errorf("%w: tip %d = %g mm", ErrBadTipDistance, n, d)
		}
	}
	return nil
}
