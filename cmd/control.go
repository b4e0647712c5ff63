// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pulseOutput   int
	onOutput      int
	offOutput     int
	zeroEncoders  bool
	resetTrack    bool
	alarmPulse    bool
	trackPulsesOn bool
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send control commands to an inspection board",
	Long: `Send one-shot control commands to an inspection control board: pulse or
switch outputs, zero the encoder counters, fire a track-counter reset
pulse, or pulse the audible alarm channel.

Commands are fire-and-forget; the board does not acknowledge them.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().IntVar(&pulseOutput, "pulse", -1, "Pulse the given output")
	controlCmd.Flags().IntVar(&onOutput, "on", -1, "Turn on the given output")
	controlCmd.Flags().IntVar(&offOutput, "off", -1, "Turn off the given output")
	controlCmd.Flags().BoolVar(&zeroEncoders, "zero-encoders", false, "Zero the encoder counters")
	controlCmd.Flags().BoolVar(&resetTrack, "reset-track", false, "Fire a track-counter reset pulse")
	controlCmd.Flags().BoolVar(&alarmPulse, "alarm", false, "Pulse the audible alarm channel")
	controlCmd.Flags().BoolVar(&trackPulsesOn, "track-pulses", false, "Enable track sync pulses")
}

func runControl(cmd *cobra.Command, args []string) error {
	board, err := connectControlBoard()
	if err != nil {
		return err
	}
	defer board.ShutDown()

	sent := 0
	if pulseOutput >= 0 {
		board.PulseOutput(pulseOutput)
		fmt.Printf("pulsed output %d\n", pulseOutput)
		sent++
	}
	if onOutput >= 0 {
		board.TurnOnOutput(onOutput)
		fmt.Printf("turned on output %d\n", onOutput)
		sent++
	}
	if offOutput >= 0 {
		board.TurnOffOutput(offOutput)
		fmt.Printf("turned off output %d\n", offOutput)
		sent++
	}
	if zeroEncoders {
		board.ZeroEncoderCounts()
		fmt.Println("zeroed encoder counters")
		sent++
	}
	if resetTrack {
		board.ResetTrackCounters()
		fmt.Println("fired track-counter reset")
		sent++
	}
	if alarmPulse {
		if !board.IsAudibleAlarmController() {
			return fmt.Errorf("board %q is not the audible alarm controller", board.Session().BoardName)
		}
		board.PulseAudibleAlarm()
		fmt.Println("pulsed audible alarm")
		sent++
	}
	if trackPulsesOn {
		board.SetTrackPulsesEnabled(true)
		fmt.Println("enabled track pulses")
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no command given; see --help")
	}
	return nil
}
