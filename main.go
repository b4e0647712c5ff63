// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT
//
// capulin - host-side driver and diagnostics CLI for Capulin control
// boards (inspection controller and notch cutter).

package main

import (
	"os"

	"github.com/openndt/capulin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
