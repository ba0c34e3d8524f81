// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan
//
// ushs-link - Serial link and device protocol coordinator for the USHS
// multi-tip heating work cell.

package main

import (
	"fmt"
	"os"

	"github.com/taimurislamkhan/ushs-link/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
