// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taimurislamkhan/ushs-link/pkg/config"
)

var (
	cfgPath      string
	debugLogging bool

	cfg *config.Instance
)

var rootCmd = &cobra.Command{
	Use:   "ushs-link",
	Short: "USHS work cell link coordinator",
	Long: `ushs-link - Serial link and device protocol coordinator for the USHS
multi-tip heating work cell.

Bridges the heating controller's serial line protocol to the operator
console: maintains the connection (with automatic reconnect), merges
telemetry into a persisted state store, and synchronizes operator
settings back to the controller.

Typical use:
  ushs-link serve                 Run the coordinator and operator API
  ushs-link ports                 List candidate serial ports
  ushs-link linktest -p /dev/...  Check a port for controller traffic
  ushs-link monitor               Live TUI view of the work cell state`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		})

		var err error
		cfg, err = config.New(cfgPath)
		if err != nil {
			return err
		}

		if debugLogging || cfg.DebugLogging() {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.CfgFile, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
