// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
)

type requestEnv struct {
	Backend Backend
	ID      uuid.UUID
	Params  json.RawMessage
}

func (env requestEnv) decodeParams(v any) error {
	if len(env.Params) == 0 {
		return errors.New("missing params")
	}
	if err := json.Unmarshal(env.Params, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

var methodMap = map[string]func(requestEnv) (any, error){
	models.MethodLinkConnect:        handleLinkConnect,
	models.MethodLinkDisconnect:     handleLinkDisconnect,
	models.MethodLinkStatus:         handleLinkStatus,
	models.MethodLinkPorts:          handleLinkPorts,
	models.MethodLinkSend:           handleLinkSend,
	models.MethodStateRead:          handleStateRead,
	models.MethodTipsUpdate:         handleTipsUpdate,
	models.MethodConfigUpdate:       handleConfigUpdate,
	models.MethodWorkPositionUpdate: handleWorkPositionUpdate,
	models.MethodWorkPositionJog:    handleWorkPositionJog,
	models.MethodWorkPositionSpeed:  handleWorkPositionSpeed,
	models.MethodWorkPositionSet:    handleWorkPositionSet,
	models.MethodMonitorUpdate:      handleMonitorUpdate,
}

func handleLinkConnect(env requestEnv) (any, error) {
	var params models.ConnectParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if params.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := env.Backend.Connect(params.Path, params.Baud); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleLinkDisconnect(env requestEnv) (any, error) {
	env.Backend.Disconnect()
	return nil, nil
}

func handleLinkStatus(env requestEnv) (any, error) {
	state, path := env.Backend.Status()
	return models.StatusResult{
		Connected: state == link.Open,
		Path:      path,
		State:     state.String(),
	}, nil
}

func handleLinkPorts(env requestEnv) (any, error) {
	return models.PortsResult{Ports: env.Backend.Ports()}, nil
}

func handleLinkSend(env requestEnv) (any, error) {
	var params models.SendParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if err := env.Backend.SendRaw([]byte(params.Raw)); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleStateRead(env requestEnv) (any, error) {
	return env.Backend.Snapshot(), nil
}

func handleTipsUpdate(env requestEnv) (any, error) {
	var params models.TipsUpdateParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if len(params.Tips) == 0 {
		return nil, errors.New("tips is required")
	}
	if err := env.Backend.UpdateTips(params.Tips); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleConfigUpdate(env requestEnv) (any, error) {
	var params models.ConfigUpdateParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if len(params.Configuration) == 0 {
		return nil, errors.New("configuration is required")
	}
	if err := env.Backend.UpdateConfiguration(params.Configuration); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleWorkPositionUpdate(env requestEnv) (any, error) {
	var params models.WorkPositionUpdateParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if params.Setpoint == nil && params.SpeedMode == nil {
		return nil, errors.New("setpoint or speed_mode is required")
	}
	if err := env.Backend.UpdateWorkPosition(params.Setpoint, params.SpeedMode); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleWorkPositionJog(env requestEnv) (any, error) {
	var params models.JogParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if err := env.Backend.Jog(params.Button, params.Pressed); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleWorkPositionSpeed(env requestEnv) (any, error) {
	var params models.SpeedParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if err := env.Backend.SetSpeedMode(params.SpeedMode); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleWorkPositionSet(env requestEnv) (any, error) {
	if err := env.Backend.SetWorkPosition(); err != nil {
		return nil, err
	}
	return nil, nil
}

func handleMonitorUpdate(env requestEnv) (any, error) {
	var params models.MonitorUpdateParams
	if err := env.decodeParams(&params); err != nil {
		return nil, err
	}
	if err := env.Backend.UpdateMonitor(store.Monitor{
		Total:        params.Total,
		Successful:   params.Successful,
		Unsuccessful: params.Unsuccessful,
		History:      params.History,
	}); err != nil {
		return nil, err
	}
	return nil, nil
}
