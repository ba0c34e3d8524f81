// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

var (
	linkTestPort    string
	linkTestBaud    int
	linkTestTimeout int
)

var linkTestCmd = &cobra.Command{
	Use:   "linktest",
	Short: "Test a port by waiting for a valid controller frame",
	Long: `Open a serial port and wait for any valid TAG:PAYLOAD frame.

Malformed lines are ignored and counted. Useful for checking that the
controller is wired to the expected port before starting the service.

Exit codes:
  0 - Valid frame received before timeout
  1 - Timeout reached without a valid frame
  2 - Port could not be opened`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().StringVarP(&linkTestPort, "port", "p", "", "Serial port device")
	linkTestCmd.Flags().IntVarP(&linkTestBaud, "baud", "b", link.DefaultBaud, "Baud rate")
	linkTestCmd.Flags().IntVar(&linkTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	_ = linkTestCmd.MarkFlagRequired("port")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	mode := &serial.Mode{
		BaudRate: linkTestBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(linkTestPort, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer port.Close()

	fmt.Printf("ushs-link - Link Test\n")
	fmt.Printf("Port: %s @ %d baud\n", linkTestPort, linkTestBaud)
	fmt.Printf("Timeout: %d seconds\n", linkTestTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	frameChan := make(chan wire.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 128)
		var acc []byte
		invalidLines := 0
		for {
			n, err := port.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			acc = append(acc, buf[:n]...)
			for {
				i := bytes.IndexByte(acc, '\n')
				if i < 0 {
					break
				}
				line := acc[:i+1]
				acc = acc[i+1:]

				frame, decodeErr := wire.Decode(line)
				if decodeErr != nil {
					invalidLines++
					continue
				}
				if invalidLines > 0 {
					fmt.Printf("(skipped %d invalid lines before sync)\n", invalidLines)
				}
				frameChan <- frame
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Tag: %s\n", frame.Tag)
		fmt.Printf("  Payload: %d bytes\n", len(frame.Payload))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(linkTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", linkTestTimeout)
		os.Exit(1)
	}

	return nil
}
