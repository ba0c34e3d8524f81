// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package notifications provides typed helpers for pushing state change
// notifications to API clients.
package notifications

import (
	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

func LinkConnected(ns chan<- models.Notification, path string) {
	ns <- models.Notification{
		Method: models.NotificationLinkConnected,
		Params: models.ConnectedParams{Path: path},
	}
}

func LinkDisconnected(ns chan<- models.Notification, path string) {
	ns <- models.Notification{
		Method: models.NotificationLinkDisconnected,
		Params: models.ConnectedParams{Path: path},
	}
}

func LinkError(ns chan<- models.Notification, message string) {
	ns <- models.Notification{
		Method: models.NotificationLinkError,
		Params: models.ErrorParams{Message: message},
	}
}

func CycleProgressChanged(ns chan<- models.Notification, stages store.Stages) {
	ns <- models.Notification{
		Method: models.NotificationCycleProgressChanged,
		Params: stages,
	}
}

func TipDataChanged(ns chan<- models.Notification, tips [wire.TipCount]store.TipRecord) {
	ns <- models.Notification{
		Method: models.NotificationTipDataChanged,
		Params: tips,
	}
}

func WorkPositionChanged(ns chan<- models.Notification, wp store.WorkPosition) {
	ns <- models.Notification{
		Method: models.NotificationWorkPositionChanged,
		Params: wp,
	}
}

func HomeScreenChanged(ns chan<- models.Notification, hs wire.HomeScreen) {
	ns <- models.Notification{
		Method: models.NotificationHomeScreenChanged,
		Params: hs,
	}
}

func MonitorChanged(ns chan<- models.Notification, m store.Monitor) {
	ns <- models.Notification{
		Method: models.NotificationMonitorChanged,
		Params: m,
	}
}
