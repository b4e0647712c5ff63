// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"
	"time"

	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
)

var (
	inspectDuration int
	inspectZero     bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Run an inspection pass and log encoder positions",
	Long: `Put an inspection control board in inspect mode and log the position
packets it sends as the encoders move: sequence count, both encoder
counts with travel direction, and the control/port status flags.

On exit, the board is taken out of inspect mode and the encoder values
latched at each inspection milestone are retrieved.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectDuration, "duration", 10, "Seconds to run")
	inspectCmd.Flags().BoolVar(&inspectZero, "zero", false, "Zero the encoder counts first")
}

func runInspect(cmd *cobra.Command, args []string) error {
	board, err := connectControlBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()

	if inspectZero {
		board.ZeroEncoderCounts()
	}

	board.StartInspect()
	defer board.StopInspect()

	// Force one packet so the local flags are fresh even before any
	// encoder movement.
	board.RequestInspectPacket()

	deadline := time.Now().Add(time.Duration(inspectDuration) * time.Second)
	for time.Now().Before(deadline) {
		if board.ProcessUntilInspectPacket() == 1 {
			fmt.Println(capulin.FormatInspectState(board.InspectState()))
			board.ClearInspectPacketReady()
		} else {
			time.Sleep(10 * time.Millisecond)
		}
	}

	board.RequestAllEncoderValues()
	board.ProcessOnePacket(true, 50)
	fmt.Println()
	fmt.Print(capulin.FormatEncoderValues(board.EncoderValues()))
	fmt.Println()
	fmt.Print(board.Session().Stats())

	return nil
}
