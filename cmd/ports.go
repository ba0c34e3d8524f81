// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taimurislamkhan/ushs-link/pkg/link"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List candidate serial ports",
	Long: `List serial ports that may host the controller, one per line.

Includes the /tmp/ttyV0 and /tmp/ttyV1 virtual pair when a socat bench
setup is present.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports := link.ListCandidates()
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
