// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

// Package capulin implements the host side of the Capulin control-board
// protocol: a header-delimited binary packet stream carried over TCP.
//
// Every frame begins with the four magic bytes 0xAA 0x55 0xBB 0x66,
// followed by a one-byte packet type and a type-specific fixed-size
// payload. Multi-byte integers are big-endian. The same framing engine
// serves both board models (the multi-axis inspection controller and the
// notch-cutter controller); the boards differ only in their packet tables
// and decoded-field shapes.
package capulin

// Frame header magic bytes. Every packet in either direction starts with
// this sequence.
const (
	Magic0 = 0xAA
	Magic1 = 0x55
	Magic2 = 0xBB
	Magic3 = 0x66
)

// MagicSize is the length of the header magic sequence. HeaderSize adds
// the packet-type byte that follows it.
const (
	MagicSize  = 4
	HeaderSize = MagicSize + 1
)

// Default remote port for all board models.
const BoardPort = 23

// ReceiveTimeout is the socket-level read timeout. A blocking read can
// never stall a poll call longer than this.
const receiveTimeoutMs = 250

// tickMs is the polling granularity while waiting for packet bytes.
// defaultTimeoutTicks bounds the per-packet payload wait.
const (
	tickMs              = 10
	defaultTimeoutTicks = 50
)

// Inspection control-board commands. The values must match the firmware
// on the boards; the same byte doubles as the packet type of the reply.
const (
	NoAction                byte = 0
	GetInspectPacketCmd     byte = 1
	ZeroEncodersCmd         byte = 2
	GetMonitorPacketCmd     byte = 3
	PulseOutputCmd          byte = 4
	TurnOnOutputCmd         byte = 5
	TurnOffOutputCmd        byte = 6
	SetEncodersDeltaTrigger byte = 7
	StartInspectCmd         byte = 8
	StopInspectCmd          byte = 9
	StartMonitorCmd         byte = 10
	StopMonitorCmd          byte = 11
	GetStatusCmd            byte = 12
	LoadFirmwareCmd         byte = 13
	SendDataCmd             byte = 14
	DataCmd                 byte = 15
	GetChassisSlotAddrCmd   byte = 16
	SetControlFlagsCmd      byte = 17
	ResetTrackCountersCmd   byte = 18
	GetAllEncoderValuesCmd  byte = 19

	ErrorCmd byte = 125
	DebugCmd byte = 126
	ExitCmd  byte = 127
)

// Cutter control-board commands. The cutter model shares the generic
// framing engine but speaks its own small command set.
const (
	CutterStartCutCmd    byte = 1
	CutterStopCutCmd     byte = 2
	CutterZeroDepthCmd   byte = 3
	CutterGetDataCmd     byte = 4
	CutterGetStatusCmd   byte = 12
	CutterChassisSlotCmd byte = 16
)

// Fixed payload sizes, excluding the header and type byte.
const (
	MonitorPacketSize     = 25
	AllEncodersPacketSize = 24
	InspectPacketSize     = 12
	CutDataPacketSize     = 8
	RuntimePacketSize     = 2048
)

// DefaultShortReplySize is the assumed payload size for the status and
// chassis/slot replies. The board firmware leaves these sizes open, so
// they are configuration-driven per protocol version rather than hard
// constants; a mismatch is logged, never silently truncated.
const DefaultShortReplySize = 2

// Input masks for the inspection board's port bytes. The port A bits and
// port E bits are active low: a zero bit means the signal is asserted.
// This reflects the board wiring and must not be normalized.
const (
	Unused1Mask byte = 0x10 // port A
	Unused2Mask byte = 0x20 // port A
	InspectMask byte = 0x40 // port A
	OnPipeMask  byte = 0x80 // port A
	TDCMask     byte = 0x01 // port E
	Unused3Mask byte = 0x20 // port E
)

// Process-control flag bits carried in the inspect packet. Unlike the
// port bytes these are active high.
const (
	OnPipeCtrl    byte = 0x01
	Head1DownCtrl byte = 0x02
	Head2DownCtrl byte = 0x04
)

// Control-flag bits transmitted to the board with SetControlFlagsCmd.
// Only the lower 16 bits are used; the corresponding firmware variable
// is an unsigned int.
const (
	SendClockMarkers   uint16 = 0x0001
	SendTDCMarkers     uint16 = 0x0002
	TrackPulsesEnabled uint16 = 0x0004
)

// Position-tracking mode strings accepted in the configuration file.
const (
	TrackingModeClockMarkers = "Send Clock Markers"
	TrackingModeTDCMarkers   = "Send TDC Markers"
)

// Direction of encoder travel, derived by comparing consecutive inspect
// packets.
type Direction int

const (
	// Decreasing is also reported when the count did not change; packets
	// are only sent on movement, so the equal case should not occur.
	Decreasing Direction = iota
	Increasing
)

func (d Direction) String() string {
	if d == Increasing {
		return "increasing"
	}
	return "decreasing"
}

// DefaultEncoderDeltaTrigger is the encoder count change that prompts the
// board to send a fresh inspect packet, per axis. Overridden from the
// configuration file.
const DefaultEncoderDeltaTrigger = 83

// monitorRequestInterval throttles monitor-packet requests: one request
// per this many poll calls. Monitor data is display-only and tolerates
// staleness.
const monitorRequestInterval = 50
