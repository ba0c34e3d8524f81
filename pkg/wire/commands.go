// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package wire

import "fmt"

// Packet builder functions create wire-ready byte slices. These are
// convenience wrappers around Encode that ensure correct envelope key usage
// for each outbound command.

type tipsEnvelope struct {
	Tips []TipSetting `json:"tips"`
}

type configurationEnvelope struct {
	Configuration Configuration `json:"configuration"`
}

type buttonEnvelope struct {
	Button  string `json:"button"`
	Pressed bool   `json:"pressed"`
}

type speedModeEnvelope struct {
	SpeedMode string `json:"speed_mode"`
}

// NewTipsPacket creates a TIPS packet carrying all 8 operator tip settings.
func NewTipsPacket(tips []TipSetting) ([]byte, error) {
	return Encode(TagTips, tipsEnvelope{Tips: tips})
}

// NewConfigurationPacket creates a CFG packet wrapping the configuration
// object verbatim.
func NewConfigurationPacket(cfg Configuration) ([]byte, error) {
	return Encode(TagConfiguration, configurationEnvelope{Configuration: cfg})
}

// NewWorkPositionUpdatePacket creates a WPU packet. Only the operator
// setpoint and speed mode travel; the live position never does.
func NewWorkPositionUpdatePacket(setpoint float64, speedMode string) ([]byte, error) {
	if !ValidSpeedMode(speedMode) {
		return nil, fmt.Errorf("%w: %q", ErrBadSpeedMode, speedMode)
	}
	return Encode(TagWorkPositionUpdate, WorkPositionSetting{
		Setpoint:  setpoint,
		SpeedMode: speedMode,
	})
}

// NewSettingsPacket creates the full SETTINGS snapshot sent in reply to a
// WAKEUP handshake.
func NewSettingsPacket(s Settings) ([]byte, error) {
	return Encode(TagSettings, s)
}

// NewButtonPacket creates a WPB packet for the operator jog buttons.
// Valid buttons are "up" and "down".
func NewButtonPacket(button string, pressed bool) ([]byte, error) {
	if button != "up" && button != "down" {
		return nil, fmt.Errorf("%w: %q", ErrBadButton, button)
	}
	return Encode(TagButton, buttonEnvelope{Button: button, Pressed: pressed})
}

// NewSpeedModePacket creates a WPS packet switching the axis speed mode.
func NewSpeedModePacket(mode string) ([]byte, error) {
	if !ValidSpeedMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrBadSpeedMode, mode)
	}
	return Encode(TagSpeedMode, speedModeEnvelope{SpeedMode: mode})
}

// NewSetWorkPositionPacket creates a WPT packet commanding the controller to
// latch the current position as the work position.
func NewSetWorkPositionPacket() ([]byte, error) {
	return Encode(TagSetWorkPosition, nil)
}
