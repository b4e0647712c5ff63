// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
)

var (
	captureFile     string
	captureDuration int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record board traffic to a capture file",
	Long: `Connect to an inspection control board, place it in inspect mode, and
record every decoded packet to a CBOR capture file.

Capture files can be replayed by the simulator: point a board's
simulation_data_source config entry at the file and run with --simulate.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureFile, "out", "o", "capture.cbor", "Capture file to write")
	captureCmd.Flags().IntVar(&captureDuration, "duration", 30, "Seconds to record")
}

func runCapture(cmd *cobra.Command, args []string) error {
	board, err := connectControlBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()

	writer, err := capulin.NewCaptureWriter(captureFile)
	if err != nil {
		return err
	}
	defer writer.Close()

	recorded := 0
	board.Session().SetPacketCallback(func(pktType byte, payload []byte) {
		if err := writer.Record(pktType, payload); err != nil {
			log.Printf("capture write error: %v", err)
			return
		}
		recorded++
	})

	fmt.Printf("Recording to %s for %d seconds...\n", captureFile, captureDuration)

	board.StartInspect()
	defer board.StopInspect()
	board.RequestInspectPacket()

	deadline := time.Now().Add(time.Duration(captureDuration) * time.Second)
	for time.Now().Before(deadline) {
		if board.ProcessOnePacket(true, 50) < 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	fmt.Printf("Recorded %d packets\n", recorded)
	return nil
}
