// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
)

func TestLinkConnected(t *testing.T) {
	ns := make(chan models.Notification, 1)

	LinkConnected(ns, "/tmp/ttyV0")

	n := <-ns
	assert.Equal(t, models.NotificationLinkConnected, n.Method)
	params, ok := n.Params.(models.ConnectedParams)
	require.True(t, ok)
	assert.Equal(t, "/tmp/ttyV0", params.Path)
}

func TestLinkError(t *testing.T) {
	ns := make(chan models.Notification, 1)

	LinkError(ns, "write failed")

	n := <-ns
	assert.Equal(t, models.NotificationLinkError, n.Method)
	params, ok := n.Params.(models.ErrorParams)
	require.True(t, ok)
	assert.Equal(t, "write failed", params.Message)
}

func TestCycleProgressChanged(t *testing.T) {
	ns := make(chan models.Notification, 1)
	stages := store.Stages{Home: store.StageActive}

	CycleProgressChanged(ns, stages)

	n := <-ns
	assert.Equal(t, models.NotificationCycleProgressChanged, n.Method)
	assert.Equal(t, stages, n.Params)
}

func TestMonitorChanged(t *testing.T) {
	ns := make(chan models.Notification, 1)

	MonitorChanged(ns, store.Monitor{Total: 3, Successful: 2, Unsuccessful: 1})

	n := <-ns
	assert.Equal(t, models.NotificationMonitorChanged, n.Method)
	m, ok := n.Params.(store.Monitor)
	require.True(t, ok)
	assert.Equal(t, 3, m.Total)
}
