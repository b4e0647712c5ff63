// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var monitorDuration int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display the board's I/O snapshot while in monitor mode",
	Long: `Place an inspection control board in monitor mode and display the I/O
status packets it sends back.

Monitor data is advisory: the board is asked for a fresh packet only
every so often, and a stale display between updates is expected.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorDuration, "duration", 0, "Seconds to run (0 = until Ctrl+C)")
}

var (
	monitorTitleStyle = lipgloss.NewStyle().Bold(true)
	monitorLiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func runMonitor(cmd *cobra.Command, args []string) error {
	board, err := connectControlBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()
	defer board.StopMonitor()

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	title := "Capulin Monitor"
	if styled {
		title = monitorTitleStyle.Render(title)
	}
	fmt.Printf("%s - %s\n", title, board.Session().BoardName)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	board.StartMonitor()

	var deadline time.Time
	if monitorDuration > 0 {
		deadline = time.Now().Add(time.Duration(monitorDuration) * time.Second)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		// Drain whatever the board has pushed, then show the stored
		// snapshot and request a refresh through the throttle.
		for board.ProcessOnePacket(false, 50) > 0 {
		}
		out := capulin.FormatMonitorPacket(board.MonitorPacket(true))
		if styled {
			out = monitorLiveStyle.Render(out)
		}
		fmt.Println(out)
	}

	return nil
}
