// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"math"
	"sync/atomic"
	"time"
)

// InspectState is the decoded contents of the most recent inspect
// packet, published as an immutable snapshot: readers always see a fully
// decoded record, never a half-updated one.
type InspectState struct {
	SequenceCount uint16

	Encoder1     int32
	Encoder2     int32
	PrevEncoder1 int32
	PrevEncoder2 int32
	Encoder1Dir  Direction
	Encoder2Dir  Direction

	// Decoded from the process-control flag byte (active high).
	OnPipe    bool
	Head1Down bool
	Head2Down bool

	// Decoded from the port E byte (active low: a zero bit asserts the
	// signal). The asymmetric polarity matches the board wiring.
	TDC     bool
	Unused3 bool

	// Raw status bytes as received.
	ControlFlags byte
	PortE        byte
}

// EncoderValues holds the encoder positions the board latched at each
// inspection milestone. Values are math.MaxInt32 until the reply packet
// has been received.
type EncoderValues struct {
	AtOnPipe    int32
	AtOffPipe   int32
	AtHead1Down int32
	AtHead1Up   int32
	AtHead2Down int32
	AtHead2Up   int32
}

func unreceivedEncoderValues() *EncoderValues {
	return &EncoderValues{
		AtOnPipe:    math.MaxInt32,
		AtOffPipe:   math.MaxInt32,
		AtHead1Down: math.MaxInt32,
		AtHead1Up:   math.MaxInt32,
		AtHead2Down: math.MaxInt32,
		AtHead2Up:   math.MaxInt32,
	}
}

// Received reports whether the all-encoder-values reply has arrived
// since the last request.
func (e *EncoderValues) Received() bool {
	return e.AtOnPipe != math.MaxInt32
}

// ControlBoard is the inspection-controller facade: it wires the
// inspection board's packet table and decoded-field storage to the
// generic session engine.
//
// An external scheduler polls ProcessOnePacket (or the convenience
// wrappers); decoded fields are retrieved through the accessor methods.
// The monitor buffer is advisory display data and may be read from other
// goroutines without locking; an occasional torn multi-byte value there
// is accepted. Inspect state and encoder values publish atomically.
type ControlBoard struct {
	cfg     BoardConfig
	session *Session

	inspect         atomic.Pointer[InspectState]
	newInspectReady atomic.Bool
	encoderValues   atomic.Pointer[EncoderValues]
	monitorBuf      []byte
	pktRequestTimer int
	status          byte
	chassisAddr     int
	slotAddr        int
	controlFlags    uint16
}

// NewControlBoard creates the facade and its session. In simulate mode
// the session dials an in-process simulator instead of the real socket.
func NewControlBoard(cfg BoardConfig) *ControlBoard {
	b := &ControlBoard{
		cfg:          cfg,
		session:      NewSession(cfg.Name, cfg.Address),
		monitorBuf:   make([]byte, MonitorPacketSize),
		controlFlags: cfg.ControlFlags(),
	}
	b.encoderValues.Store(unreceivedEncoderValues())

	if cfg.Simulate {
		b.session.Dialer = func() (Connection, error) {
			return NewControlSimulator(cfg)
		}
	}

	b.session.SetPacketTable(map[byte]PacketHandler{
		GetStatusCmd:           {Size: cfg.StatusReplySize, Decode: b.decodeStatus},
		GetChassisSlotAddrCmd:  {Size: cfg.ChassisSlotReplySize, Decode: b.decodeChassisSlot},
		GetInspectPacketCmd:    {Size: InspectPacketSize, Decode: b.decodeInspectPacket},
		GetMonitorPacketCmd:    {Size: MonitorPacketSize, Decode: b.decodeMonitorPacket},
		GetAllEncoderValuesCmd: {Size: AllEncodersPacketSize, Decode: b.decodeAllEncoderValues},
	})

	return b
}

// Session exposes the underlying transport session.
func (b *ControlBoard) Session() *Session {
	return b.session
}

// Config returns the board's configuration values.
func (b *ControlBoard) Config() BoardConfig {
	return b.cfg
}

// Connect opens the session and retrieves the board's chassis and slot
// address. Intended to run once on a dedicated goroutine which then
// parks; see Session.Connect.
func (b *ControlBoard) Connect() {
	b.session.Connect()
	if b.session.State() != Ready {
		return
	}

	// The chassis and slot switches live on the motherboard; once known,
	// diagnostics can identify the board by position instead of address.
	b.requestAndWait(GetChassisSlotAddrCmd)
	b.session.logf("control board %d:%d is ready", b.chassisAddr, b.slotAddr)
}

// Initialize pushes the host-side settings to the board: the control
// flags selected by the position-tracking mode and the encoder delta
// triggers. Call after Connect has reached Ready.
func (b *ControlBoard) Initialize() {
	b.SendControlFlags()
	b.SetEncodersDeltaTrigger()
}

// requestAndWait sends a command and polls until the matching reply
// packet has been decoded or the wait budget is spent.
func (b *ControlBoard) requestAndWait(cmd byte) bool {
	b.session.SendCommand(cmd)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		n := b.session.ProcessOnePacket(true, defaultTimeoutTicks)
		if n > 0 && b.session.LastPacketType() == cmd {
			return true
		}
		if n < 0 {
			time.Sleep(tickMs * time.Millisecond)
		}
	}
	return false
}

// ProcessOnePacket drains one packet from the board if available. See
// Session.ProcessOnePacket for the return convention.
func (b *ControlBoard) ProcessOnePacket(wait bool, timeoutTicks int) int {
	return b.session.ProcessOnePacket(wait, timeoutTicks)
}

// ProcessUntilInspectPacket processes packets until an inspect packet
// has been decoded. Returns 1 when one was, -1 when the available
// packets were exhausted without one.
func (b *ControlBoard) ProcessUntilInspectPacket() int {
	return b.session.ProcessUntil(GetInspectPacketCmd, defaultTimeoutTicks)
}

// --- decoded-field accessors ---

// InspectState returns the latest inspect snapshot, or nil before the
// first inspect packet.
func (b *ControlBoard) InspectState() *InspectState {
	return b.inspect.Load()
}

// NewInspectPacketReady reports whether an inspect packet arrived since
// the flag was last cleared.
func (b *ControlBoard) NewInspectPacketReady() bool {
	return b.newInspectReady.Load()
}

// ClearInspectPacketReady resets the new-packet flag.
func (b *ControlBoard) ClearInspectPacketReady() {
	b.newInspectReady.Store(false)
}

// EncoderValues returns the latched encoder positions from the last
// all-encoder-values reply.
func (b *ControlBoard) EncoderValues() *EncoderValues {
	return b.encoderValues.Load()
}

// Status returns the last status byte received from the board.
func (b *ControlBoard) Status() byte {
	return b.status
}

// ChassisSlotAddress returns the board's chassis and slot switches as
// read from the motherboard.
func (b *ControlBoard) ChassisSlotAddress() (chassis, slot int) {
	return b.chassisAddr, b.slotAddr
}

// MonitorPacket returns the stored I/O snapshot bytes. When request is
// true, a fresh monitor packet is requested from the board every 50th
// call; the reply arrives later and is stored by the dispatcher.
//
// This is often called from a different goroutine than the one draining
// packets. Erroneous multi-byte values can occur in a read race, but the
// data is display-only and an occasional glitch is acceptable.
func (b *ControlBoard) MonitorPacket(request bool) []byte {
	if request {
		if b.pktRequestTimer++; b.pktRequestTimer >= monitorRequestInterval {
			b.pktRequestTimer = 0
			b.session.SendCommand(GetMonitorPacketCmd, 0)
		}
	}
	return b.monitorBuf
}

// --- outbound commands ---

// RequestInspectPacket forces the board to send an inspect packet so all
// local flags and values get refreshed. Normally the board sends them on
// its own as the encoders move.
func (b *ControlBoard) RequestInspectPacket() {
	b.session.SendCommand(GetInspectPacketCmd, 0)
}

// RequestAllEncoderValues asks for the encoder positions latched at each
// inspection milestone. The stored values read math.MaxInt32 until the
// reply has been processed.
func (b *ControlBoard) RequestAllEncoderValues() {
	b.encoderValues.Store(unreceivedEncoderValues())
	b.session.SendCommand(GetAllEncoderValuesCmd)
}

// RequestStatus asks the board for a status packet.
func (b *ControlBoard) RequestStatus() {
	b.session.SendCommand(GetStatusCmd, 0)
}

// ZeroEncoderCounts zeroes the board's encoder counters.
func (b *ControlBoard) ZeroEncoderCounts() {
	b.session.SendCommand(ZeroEncodersCmd, 0)
}

// StartInspect puts the board in inspect mode: it monitors encoder and
// status signals and streams position packets back to the host.
func (b *ControlBoard) StartInspect() {
	b.session.SendCommand(StartInspectCmd, 0)
}

// StopInspect takes the board out of inspect mode.
func (b *ControlBoard) StopInspect() {
	b.session.SendCommand(StopInspectCmd, 0)
}

// StartMonitor places the board in monitor mode, in which it reports the
// state of its I/O for display.
func (b *ControlBoard) StartMonitor() {
	b.session.SendCommand(StartMonitorCmd, 0)
}

// StopMonitor takes the board out of monitor mode.
func (b *ControlBoard) StopMonitor() {
	b.session.SendCommand(StopMonitorCmd, 0)
}

// PulseOutput pulses the specified output.
func (b *ControlBoard) PulseOutput(which int) {
	b.session.SendCommand(PulseOutputCmd, byte(which))
}

// TurnOnOutput turns on the specified output.
func (b *ControlBoard) TurnOnOutput(which int) {
	b.session.SendCommand(TurnOnOutputCmd, byte(which))
}

// TurnOffOutput turns off the specified output.
func (b *ControlBoard) TurnOffOutput(which int) {
	b.session.SendCommand(TurnOffOutputCmd, byte(which))
}

// ResetTrackCounters fires a track-counter reset pulse to zero the
// tracking counters downstream.
func (b *ControlBoard) ResetTrackCounters() {
	b.session.SendCommand(ResetTrackCountersCmd, 0)
}

// SetEncodersDeltaTrigger tells the board how many encoder counts to
// accumulate before sending an encoder update, per axis. Each trigger is
// transmitted as a 16-bit big-endian pair.
func (b *ControlBoard) SetEncodersDeltaTrigger() {
	hi1, lo1 := SplitUint16(uint16(b.cfg.Encoder1DeltaTrigger))
	hi2, lo2 := SplitUint16(uint16(b.cfg.Encoder2DeltaTrigger))
	b.session.SendCommand(SetEncodersDeltaTrigger, hi1, lo1, hi2, lo2)
}

// SendControlFlags transmits the current control-flag word. Only the
// lower 16 bits are used by the board.
func (b *ControlBoard) SendControlFlags() {
	hi, lo := SplitUint16(b.controlFlags)
	b.session.SendCommand(SetControlFlagsCmd, hi, lo)
}

// SetTrackPulsesEnabled sets or clears the track-pulses bit and
// transmits the updated flags.
func (b *ControlBoard) SetTrackPulsesEnabled(enabled bool) {
	if enabled {
		b.controlFlags |= TrackPulsesEnabled
	} else {
		b.controlFlags &^= TrackPulsesEnabled
	}
	b.SendControlFlags()
}

// BeginFirmwareLoad puts the board in firmware-load mode. The image
// transfer itself is driven externally through Session.SendCommand with
// SendDataCmd/DataCmd frames.
func (b *ControlBoard) BeginFirmwareLoad() {
	b.session.SendCommand(LoadFirmwareCmd)
}

// --- audible alarm pass-through ---

// IsAudibleAlarmController reports whether this board drives the
// audible-alarm output.
func (b *ControlBoard) IsAudibleAlarmController() bool {
	return b.cfg.AudibleAlarmModule
}

// TurnOnAudibleAlarm turns on the configured alarm output channel.
func (b *ControlBoard) TurnOnAudibleAlarm() {
	b.TurnOnOutput(b.cfg.AudibleAlarmOutputChannel)
}

// TurnOffAudibleAlarm turns off the configured alarm output channel.
func (b *ControlBoard) TurnOffAudibleAlarm() {
	b.TurnOffOutput(b.cfg.AudibleAlarmOutputChannel)
}

// PulseAudibleAlarm pulses the configured alarm output channel.
func (b *ControlBoard) PulseAudibleAlarm() {
	b.PulseOutput(b.cfg.AudibleAlarmOutputChannel)
}

// ShutDown closes the board's session.
func (b *ControlBoard) ShutDown() {
	b.session.ShutDown()
}

// --- decode routines (called by the dispatcher) ---

func (b *ControlBoard) decodeStatus(p []byte) {
	b.status = p[0]
}

func (b *ControlBoard) decodeChassisSlot(p []byte) {
	b.chassisAddr = int(p[0]>>4) & 0x0F
	b.slotAddr = int(p[0]) & 0x0F
}

// decodeInspectPacket decodes the primary position packet: a 2-byte
// sequence count, two 4-byte signed encoder counts, and two status
// bytes. Direction is recomputed on every inspect decode and only here;
// monitor and status packets never touch it.
func (b *ControlBoard) decodeInspectPacket(p []byte) {
	prev := b.inspect.Load()

	st := &InspectState{
		SequenceCount: DecodeUint16(p[0:2]),
		Encoder1:      DecodeInt32(p[2:6]),
		Encoder2:      DecodeInt32(p[6:10]),
		ControlFlags:  p[10],
		PortE:         p[11],
	}

	if prev != nil {
		st.PrevEncoder1 = prev.Encoder1
		st.PrevEncoder2 = prev.Encoder2
	}

	// Packets are only sent on encoder movement, so a strict comparison
	// suffices; an unchanged count reads as decreasing.
	if st.Encoder1 > st.PrevEncoder1 {
		st.Encoder1Dir = Increasing
	} else {
		st.Encoder1Dir = Decreasing
	}
	if st.Encoder2 > st.PrevEncoder2 {
		st.Encoder2Dir = Increasing
	} else {
		st.Encoder2Dir = Decreasing
	}

	// Process-control flags are active high.
	st.OnPipe = st.ControlFlags&OnPipeCtrl != 0
	st.Head1Down = st.ControlFlags&Head1DownCtrl != 0
	st.Head2Down = st.ControlFlags&Head2DownCtrl != 0

	// Port E inputs are active low.
	st.TDC = st.PortE&TDCMask == 0
	st.Unused3 = st.PortE&Unused3Mask == 0

	b.inspect.Store(st)
	b.newInspectReady.Store(true)
}

// decodeMonitorPacket copies the I/O snapshot into the advisory monitor
// buffer for later retrieval.
func (b *ControlBoard) decodeMonitorPacket(p []byte) {
	copy(b.monitorBuf, p)
}

func (b *ControlBoard) decodeAllEncoderValues(p []byte) {
	b.encoderValues.Store(&EncoderValues{
		AtOnPipe:    DecodeInt32(p[0:4]),
		AtOffPipe:   DecodeInt32(p[4:8]),
		AtHead1Down: DecodeInt32(p[8:12]),
		AtHead1Up:   DecodeInt32(p[12:16]),
		AtHead2Down: DecodeInt32(p[16:20]),
		AtHead2Up:   DecodeInt32(p[20:24]),
	})
}
