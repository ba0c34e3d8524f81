// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taimurislamkhan/ushs-link/pkg/api"
	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/config"
	"github.com/taimurislamkhan/ushs-link/pkg/coordinator"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
)

// portRecorder remembers the last port the operator connected to, so the
// next start can auto-connect to it.
type portRecorder struct {
	*coordinator.Coordinator
	cfg *config.Instance
}

func (p portRecorder) Connect(path string, baud int) error {
	if err := p.Coordinator.Connect(path, baud); err != nil {
		return err
	}
	p.cfg.SetLinkPort(path)
	if err := p.cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("could not save last used port")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the link coordinator and operator API",
	Long: `Run the coordinator daemon: opens the state store, serves the
operator API on the configured port, and (with auto_connect enabled)
connects to the controller's serial port.

The process runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}

	lk := link.NewManager(nil, nil)
	ns := make(chan models.Notification, 32)
	coord := coordinator.New(st, lk, nil, ns)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go coord.Run(ctx)

	if cfg.AutoConnect() && cfg.LinkPort() != "" {
		// a failed open is not fatal, the operator can connect over the API
		if err := coord.Connect(cfg.LinkPort(), cfg.LinkBaud()); err != nil {
			log.Warn().Err(err).Msg("initial connect failed")
		}
	}

	defer lk.Disconnect()
	return api.Start(ctx, fmt.Sprintf(":%d", cfg.APIPort()), portRecorder{Coordinator: coord, cfg: cfg}, ns)
}
