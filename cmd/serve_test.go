// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/config"
	"github.com/taimurislamkhan/ushs-link/pkg/coordinator"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
)

type idlePort struct {
	closeOnce sync.Once
	closed    chan struct{}
}

func newIdlePort() *idlePort {
	return &idlePort{closed: make(chan struct{})}
}

func (p *idlePort) Read([]byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *idlePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *idlePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *idlePort) SetReadTimeout(time.Duration) error { return nil }

func newTestRecorder(t *testing.T, factory link.PortFactory) (portRecorder, string) {
	t.Helper()
	dir := t.TempDir()

	cfgFile := filepath.Join(dir, config.CfgFile)
	cfgInst, err := config.New(cfgFile)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, "tip_states.json"))
	require.NoError(t, err)

	lk := link.NewManager(factory, nil)
	ns := make(chan models.Notification, 8)
	coord := coordinator.New(st, lk, nil, ns)

	return portRecorder{Coordinator: coord, cfg: cfgInst}, cfgFile
}

func TestPortRecorder_SavesLastUsedPort(t *testing.T) {
	factory := func(string, *serial.Mode) (link.Port, error) { return newIdlePort(), nil }
	rec, cfgFile := newTestRecorder(t, factory)

	require.NoError(t, rec.Connect("/tmp/ttyV0", 0))
	defer rec.Disconnect()

	reloaded, err := config.New(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ttyV0", reloaded.LinkPort())
}

func TestPortRecorder_DoesNotSaveFailedConnect(t *testing.T) {
	factory := func(string, *serial.Mode) (link.Port, error) {
		return nil, errors.New("no such device")
	}
	rec, cfgFile := newTestRecorder(t, factory)

	require.Error(t, rec.Connect("/dev/missing", 0))

	reloaded, err := config.New(cfgFile)
	require.NoError(t, err)
	assert.Empty(t, reloaded.LinkPort())
}
