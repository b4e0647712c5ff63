// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"sync/atomic"
	"time"
)

// CutData is the decoded contents of a cutter data packet: a 2-byte
// sequence count, a 4-byte signed depth count, and two status bytes.
// Published as an immutable snapshot like the inspect state.
type CutData struct {
	SequenceCount uint16
	DepthCount    int32
	StatusA       byte
	StatusB       byte
}

// CutterBoard is the notch-cutter facade. It shares the framing engine
// with the inspection controller verbatim; only the packet table and
// decoded-field shapes differ.
type CutterBoard struct {
	cfg     BoardConfig
	session *Session

	cutData      atomic.Pointer[CutData]
	newDataReady atomic.Bool
	status       byte
	chassisAddr  int
	slotAddr     int
}

// NewCutterBoard creates the facade and its session. In simulate mode
// the session dials an in-process simulator instead of the real socket.
func NewCutterBoard(cfg BoardConfig) *CutterBoard {
	b := &CutterBoard{
		cfg:     cfg,
		session: NewSession(cfg.Name, cfg.Address),
	}

	if cfg.Simulate {
		b.session.Dialer = func() (Connection, error) {
			return NewCutterSimulator(cfg)
		}
	}

	b.session.SetPacketTable(map[byte]PacketHandler{
		CutterGetStatusCmd:   {Size: cfg.StatusReplySize, Decode: b.decodeStatus},
		CutterChassisSlotCmd: {Size: cfg.ChassisSlotReplySize, Decode: b.decodeChassisSlot},
		CutterGetDataCmd:     {Size: CutDataPacketSize, Decode: b.decodeCutData},
	})

	return b
}

// Session exposes the underlying transport session.
func (b *CutterBoard) Session() *Session {
	return b.session
}

// Connect opens the session. Intended to run once on a dedicated
// goroutine which then parks; see Session.Connect.
func (b *CutterBoard) Connect() {
	b.session.Connect()
}

// ProcessOnePacket drains one packet from the board if available. See
// Session.ProcessOnePacket for the return convention.
func (b *CutterBoard) ProcessOnePacket(wait bool, timeoutTicks int) int {
	return b.session.ProcessOnePacket(wait, timeoutTicks)
}

// StartCut puts the board in cutting mode.
func (b *CutterBoard) StartCut() {
	b.session.SendCommand(CutterStartCutCmd, 0)
}

// StopCut takes the board out of cutting mode.
func (b *CutterBoard) StopCut() {
	b.session.SendCommand(CutterStopCutCmd, 0)
}

// ZeroDepthCount zeroes the cut-depth counter.
func (b *CutterBoard) ZeroDepthCount() {
	b.session.SendCommand(CutterZeroDepthCmd, 0)
}

// RequestCutData asks the board for a data packet and waits briefly for
// the reply. Returns the decoded data, or nil when no reply arrived
// within the wait budget.
func (b *CutterBoard) RequestCutData() *CutData {
	b.newDataReady.Store(false)
	b.session.SendCommand(CutterGetDataCmd, 0)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if b.session.ProcessUntil(CutterGetDataCmd, defaultTimeoutTicks) == 1 {
			return b.cutData.Load()
		}
		time.Sleep(tickMs * time.Millisecond)
	}
	return nil
}

// CutData returns the latest decoded data packet, or nil before the
// first one.
func (b *CutterBoard) CutData() *CutData {
	return b.cutData.Load()
}

// NewDataReady reports whether a data packet arrived since the last
// request.
func (b *CutterBoard) NewDataReady() bool {
	return b.newDataReady.Load()
}

// Status returns the last status byte received from the board.
func (b *CutterBoard) Status() byte {
	return b.status
}

// ChassisSlotAddress returns the board's chassis and slot switches.
func (b *CutterBoard) ChassisSlotAddress() (chassis, slot int) {
	return b.chassisAddr, b.slotAddr
}

// ShutDown closes the board's session.
func (b *CutterBoard) ShutDown() {
	b.session.ShutDown()
}

func (b *CutterBoard) decodeStatus(p []byte) {
	b.status = p[0]
}

func (b *CutterBoard) decodeChassisSlot(p []byte) {
	b.chassisAddr = int(p[0]>>4) & 0x0F
	b.slotAddr = int(p[0]) & 0x0F
}

func (b *CutterBoard) decodeCutData(p []byte) {
	b.cutData.Store(&CutData{
		SequenceCount: DecodeUint16(p[0:2]),
		DepthCount:    DecodeInt32(p[2:6]),
		StatusA:       p[6],
		StatusB:       p[7],
	})
	b.newDataReady.Store(true)
}
