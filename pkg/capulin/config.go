// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoardConfig carries the per-board tuning values the engine consumes
// from the external configuration store.
type BoardConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // "control" or "cutter"
	Address  string `yaml:"address"`
	Simulate bool   `yaml:"simulate"`

	// SimulationDataSource points at a capture file the simulator plays
	// back. Empty means the simulator generates data itself.
	SimulationDataSource string `yaml:"simulation_data_source"`

	RuntimePacketSize int `yaml:"runtime_packet_size"`

	Encoder1DeltaTrigger int `yaml:"encoder1_delta_trigger"`
	Encoder2DeltaTrigger int `yaml:"encoder2_delta_trigger"`

	// PositionTrackingMode selects the control-flag bit sent to the
	// board: "Send Clock Markers" or "Send TDC Markers".
	PositionTrackingMode string `yaml:"position_tracking_mode"`

	AudibleAlarmModule        bool   `yaml:"audible_alarm_module"`
	AudibleAlarmOutputChannel int    `yaml:"audible_alarm_output_channel"`
	AudibleAlarmPulseDuration string `yaml:"audible_alarm_pulse_duration"`

	// The board firmware leaves these reply sizes open, so they are
	// per-protocol-version configuration rather than constants.
	StatusReplySize      int `yaml:"status_reply_size"`
	ChassisSlotReplySize int `yaml:"chassis_slot_reply_size"`
}

// Config is the top-level configuration file shape.
type Config struct {
	Boards []BoardConfig `yaml:"boards"`
}

// DefaultBoardConfig returns a BoardConfig with every tuning value at
// its default.
func DefaultBoardConfig(name string) BoardConfig {
	return BoardConfig{
		Name:                      name,
		Type:                      "control",
		RuntimePacketSize:         RuntimePacketSize,
		Encoder1DeltaTrigger:      DefaultEncoderDeltaTrigger,
		Encoder2DeltaTrigger:      DefaultEncoderDeltaTrigger,
		PositionTrackingMode:      TrackingModeClockMarkers,
		AudibleAlarmPulseDuration: "1",
		StatusReplySize:           DefaultShortReplySize,
		ChassisSlotReplySize:      DefaultShortReplySize,
	}
}

// applyDefaults fills zero-valued tuning fields so that a sparse YAML
// section behaves like the documented defaults.
func (c *BoardConfig) applyDefaults() {
	if c.Type == "" {
		c.Type = "control"
	}
	if c.RuntimePacketSize == 0 {
		c.RuntimePacketSize = RuntimePacketSize
	}
	if c.Encoder1DeltaTrigger == 0 {
		c.Encoder1DeltaTrigger = DefaultEncoderDeltaTrigger
	}
	if c.Encoder2DeltaTrigger == 0 {
		c.Encoder2DeltaTrigger = DefaultEncoderDeltaTrigger
	}
	if c.PositionTrackingMode == "" {
		c.PositionTrackingMode = TrackingModeClockMarkers
	}
	if c.AudibleAlarmPulseDuration == "" {
		c.AudibleAlarmPulseDuration = "1"
	}
	if c.StatusReplySize == 0 {
		c.StatusReplySize = DefaultShortReplySize
	}
	if c.ChassisSlotReplySize == 0 {
		c.ChassisSlotReplySize = DefaultShortReplySize
	}
}

// ControlFlags maps the configured position-tracking mode onto the
// board's control-flag bits. Unknown mode strings set no bit, matching
// the board's own permissive parsing.
func (c *BoardConfig) ControlFlags() uint16 {
	var flags uint16
	switch c.PositionTrackingMode {
	case TrackingModeClockMarkers:
		flags |= SendClockMarkers
	case TrackingModeTDCMarkers:
		flags |= SendTDCMarkers
	}
	return flags
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for i := range cfg.Boards {
		b := &cfg.Boards[i]
		if b.Name == "" {
			b.Name = fmt.Sprintf("Board %d", i)
		}
		if b.Type != "" && b.Type != "control" && b.Type != "cutter" {
			return nil, fmt.Errorf("board %q: unknown type %q", b.Name, b.Type)
		}
		b.applyDefaults()
	}

	return &cfg, nil
}
