// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"

	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect to a board and report its identity and status",
	Long: `Connect to an inspection control board, print its greeting, chassis and
slot address, status byte, and the session's transport statistics.

Exit codes:
  0 - Board reached Ready
  1 - Board unreachable or failed`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	board, err := connectControlBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()

	session := board.Session()
	fmt.Printf("Board:    %s\n", session.BoardName)
	fmt.Printf("State:    %s\n", session.State())
	fmt.Printf("Greeting: %s\n", session.Greeting())

	chassis, slot := board.ChassisSlotAddress()
	fmt.Printf("Address:  chassis %d, slot %d\n", chassis, slot)

	board.RequestStatus()
	board.ProcessOnePacket(true, 50)
	if session.LastPacketType() == capulin.GetStatusCmd {
		fmt.Printf("Status:   0x%02X\n", board.Status())
	} else {
		fmt.Printf("Status:   (no reply)\n")
	}

	fmt.Println()
	fmt.Print(session.Stats())
	return nil
}
