// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Thermoscope - thermal camera serial remote
//
// A CLI tool for controlling a serial-attached thermal camera and for
// observing the commands sent to it.

package main

import (
	"os"

	"github.com/Thermoquad/thermoscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
