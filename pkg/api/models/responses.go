// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package models

type StatusResult struct {
	Connected bool   `json:"connected"`
	Path      string `json:"path"`
	State     string `json:"state"`
}

type PortsResult struct {
	Ports []string `json:"ports"`
}

// ConnectedParams is the payload of link.connected and link.disconnected
// notifications.
type ConnectedParams struct {
	Path string `json:"path"`
}

// ErrorParams is the payload of link.error notifications.
type ErrorParams struct {
	Message string `json:"message"`
}
