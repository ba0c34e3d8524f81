// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package link

import (
	"os"

	"go.bug.st/serial"
)

// Virtual endpoints created by socat for bench testing without hardware.
var virtualPorts = []string{"/tmp/ttyV0", "/tmp/ttyV1"}

// ListCandidates enumerates serial ports that may host the controller:
// every port the OS reports plus the socat virtual pair when present.
// Enumeration failures yield an empty list rather than an error; the
// operator can still type a path by hand.
func ListCandidates() []string {
	var out []string

	names, err := serial.GetPortsList()
	if err == nil {
		out = append(out, names...)
	}

	for _, p := range virtualPorts {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}

	seen := make(map[string]bool, len(out))
	uniq := out[:0]
	for _, p := range out {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	return uniq
}
