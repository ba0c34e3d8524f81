// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package models defines the JSON-RPC objects, method names and
// notification names of the operator console API.
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	NotificationLinkConnected        = "link.connected"
	NotificationLinkDisconnected     = "link.disconnected"
	NotificationLinkError            = "link.error"
	NotificationCycleProgressChanged = "cycleProgress.changed"
	NotificationTipDataChanged       = "tipData.changed"
	NotificationWorkPositionChanged  = "workPosition.changed"
	NotificationHomeScreenChanged    = "homeScreen.changed"
	NotificationMonitorChanged       = "monitor.changed"
)

const (
	MethodLinkConnect        = "link.connect"
	MethodLinkDisconnect     = "link.disconnect"
	MethodLinkStatus         = "link.status"
	MethodLinkPorts          = "link.ports"
	MethodLinkSend           = "link.send"
	MethodStateRead          = "state.read"
	MethodTipsUpdate         = "tips.update"
	MethodConfigUpdate       = "config.update"
	MethodWorkPositionUpdate = "workposition.update"
	MethodWorkPositionJog    = "workposition.jog"
	MethodWorkPositionSpeed  = "workposition.speed"
	MethodWorkPositionSet    = "workposition.set"
	MethodMonitorUpdate      = "monitor.update"
)

// Notification is a server-push message broadcast to every client.
type Notification struct {
	Method string
	Params any
}

type RequestObject struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uuid.UUID      `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
}
