// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"

	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
)

var (
	cutterStart bool
	cutterStop  bool
	cutterZero  bool
	cutterData  bool
)

var cutterCmd = &cobra.Command{
	Use:   "cutter",
	Short: "Operate a notch-cutter control board",
	Long: `Send commands to a notch-cutter control board: start or stop a cut,
zero the depth counter, or request a data packet with the current depth
count.

The cutter speaks the same framed packet protocol as the inspection
controller, with its own command set.`,
	RunE: runCutter,
}

func init() {
	rootCmd.AddCommand(cutterCmd)
	cutterCmd.Flags().BoolVar(&cutterStart, "start", false, "Start cutting")
	cutterCmd.Flags().BoolVar(&cutterStop, "stop", false, "Stop cutting")
	cutterCmd.Flags().BoolVar(&cutterZero, "zero-depth", false, "Zero the depth counter")
	cutterCmd.Flags().BoolVar(&cutterData, "data", false, "Request a cut data packet")
}

func runCutter(cmd *cobra.Command, args []string) error {
	board, err := connectCutterBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()

	sent := 0
	if cutterZero {
		board.ZeroDepthCount()
		fmt.Println("zeroed depth counter")
		sent++
	}
	if cutterStart {
		board.StartCut()
		fmt.Println("cut started")
		sent++
	}
	if cutterStop {
		board.StopCut()
		fmt.Println("cut stopped")
		sent++
	}
	if cutterData {
		data := board.RequestCutData()
		if data == nil {
			return fmt.Errorf("no data packet received")
		}
		fmt.Println(capulin.FormatCutData(data))
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no command given; see --help")
	}
	return nil
}
