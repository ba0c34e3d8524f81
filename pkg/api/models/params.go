// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package models

import (
	"encoding/json"

	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

type ConnectParams struct {
	Path string `json:"path"`
	Baud int    `json:"baud,omitempty"`
}

type SendParams struct {
	Raw string `json:"raw"`
}

type TipsUpdateParams struct {
	Tips []wire.TipSetting `json:"tips"`
}

type ConfigUpdateParams struct {
	Configuration map[string]float64 `json:"configuration"`
}

// WorkPositionUpdateParams carries the operator target. Either field may be
// omitted to leave the stored value alone.
type WorkPositionUpdateParams struct {
	Setpoint  *float64 `json:"setpoint,omitempty"`
	SpeedMode *string  `json:"speed_mode,omitempty"`
}

type JogParams struct {
	Button  string `json:"button"`
	Pressed bool   `json:"pressed"`
}

type SpeedParams struct {
	SpeedMode string `json:"speed_mode"`
}

type MonitorUpdateParams struct {
	Total        int             `json:"total"`
	Successful   int             `json:"successful"`
	Unsuccessful int             `json:"unsuccessful"`
	History      json.RawMessage `json:"history,omitempty"`
}
