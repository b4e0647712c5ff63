// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 OpenNDT

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/openndt/capulin/pkg/capulin"
	"github.com/spf13/cobra"
)

var (
	configPath string
	boardName  string

	// Direct connection flags, used when no config file is given.
	boardAddr  string
	simulate   bool
	serialPort string
	baudRate   int
	wsURL      string
)

var rootCmd = &cobra.Command{
	Use:   "capulin",
	Short: "Capulin control-board host driver",
	Long: `capulin - host-side driver and diagnostics for Capulin control boards.

Talks the header-delimited binary packet protocol to the multi-axis
inspection controller and the notch-cutter controller over TCP.

Connection modes:
  TCP:       --addr 192.168.1.12            (board port 23)
  Serial:    --serial /dev/ttyUSB0 [--baud 115200]
  WebSocket: --ws ws://host/path
  Simulator: --simulate

A YAML config file (--config) can carry per-board tuning values: encoder
delta triggers, position tracking mode, alarm channel, reply sizes.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&boardName, "board", "", "Board name to select from the config file")

	rootCmd.PersistentFlags().StringVarP(&boardAddr, "addr", "a", "", "Board IP address (resolved by discovery)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the in-process board simulator")
	rootCmd.PersistentFlags().StringVar(&serialPort, "serial", "", "Serial port device (RS-232 bridge)")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws", "", "WebSocket URL (ws:// or wss:// bridge)")
}

// loadBoardConfig resolves the board configuration from the config file
// or from the connection flags.
func loadBoardConfig(boardType string) (capulin.BoardConfig, error) {
	if configPath != "" {
		cfg, err := capulin.LoadConfig(configPath)
		if err != nil {
			return capulin.BoardConfig{}, err
		}
		for _, b := range cfg.Boards {
			if boardName == "" || b.Name == boardName {
				if b.Type != boardType {
					continue
				}
				return b, nil
			}
		}
		return capulin.BoardConfig{}, fmt.Errorf("no %s board %q in %s", boardType, boardName, configPath)
	}

	b := capulin.DefaultBoardConfig(boardType + " board")
	b.Type = boardType
	b.Address = boardAddr
	b.Simulate = simulate
	return b, nil
}

// applyTransport wires the optional serial or WebSocket transport into a
// session. TCP and the simulator are handled by the session itself.
func applyTransport(session *capulin.Session) {
	switch {
	case serialPort != "":
		port, baud := serialPort, baudRate
		session.Dialer = func() (capulin.Connection, error) {
			return capulin.OpenSerialConnection(port, baud)
		}
	case wsURL != "":
		url := wsURL
		session.Dialer = func() (capulin.Connection, error) {
			return capulin.OpenWebSocketConnection(url)
		}
	}
}

// connectControlBoard builds an inspection-board facade from the flags
// and connects it, returning an error if the session never reaches
// Ready.
func connectControlBoard() (*capulin.ControlBoard, error) {
	cfg, err := loadBoardConfig("control")
	if err != nil {
		return nil, err
	}

	board := capulin.NewControlBoard(cfg)
	if !cfg.Simulate {
		applyTransport(board.Session())
	}

	// The connecting goroutine owns the socket and must not exit.
	go func() {
		board.Connect()
		select {}
	}()

	if err := waitReady(board.Session()); err != nil {
		return nil, err
	}
	board.Initialize()
	return board, nil
}

// connectCutterBoard builds a cutter-board facade and connects it.
func connectCutterBoard() (*capulin.CutterBoard, error) {
	cfg, err := loadBoardConfig("cutter")
	if err != nil {
		return nil, err
	}

	board := capulin.NewCutterBoard(cfg)
	if !cfg.Simulate {
		applyTransport(board.Session())
	}

	go func() {
		board.Connect()
		select {}
	}()

	if err := waitReady(board.Session()); err != nil {
		return nil, err
	}
	return board, nil
}

// waitReady blocks until the session reaches a terminal state, bounded
// by a connect timeout.
func waitReady(session *capulin.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := session.WaitReady(ctx); err != nil {
		return fmt.Errorf("board %q not ready: %w", session.BoardName, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
