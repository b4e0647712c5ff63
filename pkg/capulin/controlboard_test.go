// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// newTestControlBoard builds a control board facade wired to a fakeConn.
func newTestControlBoard(t *testing.T) (*ControlBoard, *fakeConn) {
	t.Helper()
	b := NewControlBoard(DefaultBoardConfig("test control"))
	conn := &fakeConn{}
	b.session.SetLogger(t.Logf)
	b.session.conn = conn
	b.session.rx = newRxStream(conn)
	b.session.state = Ready
	return b, conn
}

func inspectPayload(seq uint16, enc1, enc2 int32, ctrl, portE byte) []byte {
	p := make([]byte, InspectPacketSize)
	binary.BigEndian.PutUint16(p[0:2], seq)
	binary.BigEndian.PutUint32(p[2:6], uint32(enc1))
	binary.BigEndian.PutUint32(p[6:10], uint32(enc2))
	p[10] = ctrl
	p[11] = portE
	return p
}

func feedInspect(conn *fakeConn, payload []byte) {
	conn.feed(EncodeFrame(GetInspectPacketCmd, payload)...)
}

// ============================================================
// Inspect packet decode
// ============================================================

// End-to-end: AA 55 BB 66 0C plus a 12-byte payload yields the decoded
// sequence count, encoder values and status bytes, with 12 bytes
// consumed.
func TestDecodeInspectPacket(t *testing.T) {
	b, conn := newTestControlBoard(t)

	feedInspect(conn, inspectPayload(7, 1000, -2000, OnPipeCtrl|Head1DownCtrl, 0xFE))

	if got := b.ProcessOnePacket(false, 50); got != InspectPacketSize {
		t.Fatalf("ProcessOnePacket = %d, want %d", got, InspectPacketSize)
	}

	st := b.InspectState()
	if st == nil {
		t.Fatal("InspectState is nil after decode")
	}
	if st.SequenceCount != 7 {
		t.Errorf("SequenceCount = %d, want 7", st.SequenceCount)
	}
	if st.Encoder1 != 1000 || st.Encoder2 != -2000 {
		t.Errorf("encoders = %d, %d, want 1000, -2000", st.Encoder1, st.Encoder2)
	}
	if !st.OnPipe || !st.Head1Down || st.Head2Down {
		t.Errorf("control flags = on-pipe %v, head1 %v, head2 %v, want true, true, false",
			st.OnPipe, st.Head1Down, st.Head2Down)
	}
	if !b.NewInspectPacketReady() {
		t.Error("NewInspectPacketReady should be true after decode")
	}
}

// Direction is derived by strict greater-than: an increase reads as
// Increasing, a decrease or an unchanged count as Decreasing.
func TestEncoderDirection(t *testing.T) {
	tests := []struct {
		name  string
		first int32
		then  int32
		want  Direction
	}{
		{"increase", 100, 200, Increasing},
		{"decrease", 200, 100, Decreasing},
		{"unchanged", 100, 100, Decreasing},
		{"negative to positive", -50, 50, Increasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, conn := newTestControlBoard(t)

			feedInspect(conn, inspectPayload(1, tt.first, tt.first, 0, 0xFF))
			if b.ProcessOnePacket(false, 50) != InspectPacketSize {
				t.Fatal("first decode failed")
			}
			feedInspect(conn, inspectPayload(2, tt.then, tt.then, 0, 0xFF))
			if b.ProcessOnePacket(false, 50) != InspectPacketSize {
				t.Fatal("second decode failed")
			}

			st := b.InspectState()
			if st.Encoder1Dir != tt.want {
				t.Errorf("Encoder1Dir = %v, want %v", st.Encoder1Dir, tt.want)
			}
			if st.Encoder2Dir != tt.want {
				t.Errorf("Encoder2Dir = %v, want %v", st.Encoder2Dir, tt.want)
			}
			if st.PrevEncoder1 != tt.first {
				t.Errorf("PrevEncoder1 = %d, want %d", st.PrevEncoder1, tt.first)
			}
		})
	}
}

// Port E is active low: a 0x00 byte asserts every signal, 0xFF none.
// The control-flag byte is active high. The asymmetry is board wiring
// and must not be normalized away.
func TestStatusBytePolarity(t *testing.T) {
	b, conn := newTestControlBoard(t)

	feedInspect(conn, inspectPayload(1, 0, 0, 0x00, 0x00))
	if b.ProcessOnePacket(false, 50) != InspectPacketSize {
		t.Fatal("decode failed")
	}
	st := b.InspectState()
	if st.OnPipe {
		t.Error("control flags 0x00 (active high): OnPipe should be false")
	}
	if !st.TDC || !st.Unused3 {
		t.Error("port E 0x00 (active low): TDC and Unused3 should be true")
	}

	feedInspect(conn, inspectPayload(2, 1, 1, 0xFF, 0xFF))
	if b.ProcessOnePacket(false, 50) != InspectPacketSize {
		t.Fatal("decode failed")
	}
	st = b.InspectState()
	if !st.OnPipe {
		t.Error("control flags 0xFF (active high): OnPipe should be true")
	}
	if st.TDC || st.Unused3 {
		t.Error("port E 0xFF (active low): TDC and Unused3 should be false")
	}
}

// ============================================================
// Monitor packet
// ============================================================

// Monitor requests are throttled: only every Nth poll call sends a
// request to the board.
func TestMonitorRequestThrottle(t *testing.T) {
	b, conn := newTestControlBoard(t)

	for i := 0; i < monitorRequestInterval-1; i++ {
		b.MonitorPacket(true)
	}
	if conn.wr.Len() != 0 {
		t.Fatalf("request sent after %d calls, expected none", monitorRequestInterval-1)
	}

	b.MonitorPacket(true)
	want := EncodeCommand(GetMonitorPacketCmd, 0)
	if !bytes.Equal(conn.wr.Bytes(), want) {
		t.Errorf("wrote % X, want % X", conn.wr.Bytes(), want)
	}

	// Without the request flag, no command goes out at all.
	conn.wr.Reset()
	for i := 0; i < monitorRequestInterval*2; i++ {
		b.MonitorPacket(false)
	}
	if conn.wr.Len() != 0 {
		t.Error("MonitorPacket(false) must never request a packet")
	}
}

func TestDecodeMonitorPacket(t *testing.T) {
	b, conn := newTestControlBoard(t)

	payload := make([]byte, MonitorPacketSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	conn.feed(EncodeFrame(GetMonitorPacketCmd, payload)...)

	if got := b.ProcessOnePacket(false, 50); got != MonitorPacketSize {
		t.Fatalf("ProcessOnePacket = %d, want %d", got, MonitorPacketSize)
	}
	if !bytes.Equal(b.MonitorPacket(false), payload) {
		t.Errorf("monitor buffer = % X, want % X", b.MonitorPacket(false), payload)
	}
}

// ============================================================
// All-encoder values
// ============================================================

func TestAllEncoderValues(t *testing.T) {
	b, conn := newTestControlBoard(t)

	b.RequestAllEncoderValues()
	if b.EncoderValues().Received() {
		t.Error("values should read unreceived until the reply arrives")
	}
	if b.EncoderValues().AtOnPipe != math.MaxInt32 {
		t.Errorf("AtOnPipe = %d, want MaxInt32 sentinel", b.EncoderValues().AtOnPipe)
	}

	payload := make([]byte, AllEncodersPacketSize)
	for i, v := range []int32{10, 20, 30, 40, 50, 60} {
		binary.BigEndian.PutUint32(payload[i*4:i*4+4], uint32(v))
	}
	conn.feed(EncodeFrame(GetAllEncoderValuesCmd, payload)...)

	if got := b.ProcessOnePacket(false, 50); got != AllEncodersPacketSize {
		t.Fatalf("ProcessOnePacket = %d, want %d", got, AllEncodersPacketSize)
	}

	e := b.EncoderValues()
	if !e.Received() {
		t.Fatal("values should read received after the reply")
	}
	if e.AtOnPipe != 10 || e.AtOffPipe != 20 || e.AtHead1Down != 30 ||
		e.AtHead1Up != 40 || e.AtHead2Down != 50 || e.AtHead2Up != 60 {
		t.Errorf("decoded values = %+v", *e)
	}
}

// ============================================================
// Outbound commands
// ============================================================

func TestSetEncodersDeltaTrigger(t *testing.T) {
	cfg := DefaultBoardConfig("test control")
	cfg.Encoder1DeltaTrigger = 0x0153
	cfg.Encoder2DeltaTrigger = 0x0080
	b := NewControlBoard(cfg)
	conn := &fakeConn{}
	b.session.conn = conn
	b.session.rx = newRxStream(conn)
	b.session.state = Ready

	b.SetEncodersDeltaTrigger()

	want := EncodeCommand(SetEncodersDeltaTrigger, 0x01, 0x53, 0x00, 0x80)
	if !bytes.Equal(conn.wr.Bytes(), want) {
		t.Errorf("wrote % X, want % X", conn.wr.Bytes(), want)
	}
}

func TestControlFlagCommands(t *testing.T) {
	cfg := DefaultBoardConfig("test control")
	cfg.PositionTrackingMode = TrackingModeTDCMarkers
	b := NewControlBoard(cfg)
	conn := &fakeConn{}
	b.session.conn = conn
	b.session.rx = newRxStream(conn)
	b.session.state = Ready

	b.SetTrackPulsesEnabled(true)

	hi, lo := SplitUint16(SendTDCMarkers | TrackPulsesEnabled)
	want := EncodeCommand(SetControlFlagsCmd, hi, lo)
	if !bytes.Equal(conn.wr.Bytes(), want) {
		t.Errorf("wrote % X, want % X", conn.wr.Bytes(), want)
	}
}

func TestAudibleAlarmPassThrough(t *testing.T) {
	cfg := DefaultBoardConfig("test control")
	cfg.AudibleAlarmModule = true
	cfg.AudibleAlarmOutputChannel = 3
	b := NewControlBoard(cfg)
	conn := &fakeConn{}
	b.session.conn = conn
	b.session.rx = newRxStream(conn)
	b.session.state = Ready

	if !b.IsAudibleAlarmController() {
		t.Fatal("expected audible alarm controller")
	}
	b.PulseAudibleAlarm()

	want := EncodeCommand(PulseOutputCmd, 3)
	if !bytes.Equal(conn.wr.Bytes(), want) {
		t.Errorf("wrote % X, want % X", conn.wr.Bytes(), want)
	}
}

func TestChassisSlotDecode(t *testing.T) {
	b, conn := newTestControlBoard(t)

	conn.feed(EncodeFrame(GetChassisSlotAddrCmd, []byte{0x35, 0x00})...)

	if got := b.ProcessOnePacket(false, 50); got != 2 {
		t.Fatalf("ProcessOnePacket = %d, want 2", got)
	}
	chassis, slot := b.ChassisSlotAddress()
	if chassis != 3 || slot != 5 {
		t.Errorf("chassis:slot = %d:%d, want 3:5", chassis, slot)
	}
}
