// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestCutterBoard(t *testing.T) (*CutterBoard, *fakeConn) {
	t.Helper()
	cfg := DefaultBoardConfig("test cutter")
	cfg.Type = "cutter"
	b := NewCutterBoard(cfg)
	conn := &fakeConn{}
	b.session.SetLogger(t.Logf)
	b.session.conn = conn
	b.session.rx = newRxStream(conn)
	b.session.state = Ready
	return b, conn
}

func cutDataPayload(seq uint16, depth int32, statusA, statusB byte) []byte {
	p := make([]byte, CutDataPacketSize)
	binary.BigEndian.PutUint16(p[0:2], seq)
	binary.BigEndian.PutUint32(p[2:6], uint32(depth))
	p[6] = statusA
	p[7] = statusB
	return p
}

func TestCutterCommands(t *testing.T) {
	tests := []struct {
		name string
		send func(b *CutterBoard)
		cmd  byte
	}{
		{"start cut", (*CutterBoard).StartCut, CutterStartCutCmd},
		{"stop cut", (*CutterBoard).StopCut, CutterStopCutCmd},
		{"zero depth", (*CutterBoard).ZeroDepthCount, CutterZeroDepthCmd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, conn := newTestCutterBoard(t)

			tt.send(b)

			want := EncodeCommand(tt.cmd, 0)
			if !bytes.Equal(conn.wr.Bytes(), want) {
				t.Errorf("wrote % X, want % X", conn.wr.Bytes(), want)
			}
		})
	}
}

func TestDecodeCutData(t *testing.T) {
	b, conn := newTestCutterBoard(t)

	if b.CutData() != nil {
		t.Fatal("CutData should be nil before the first data packet")
	}

	conn.feed(EncodeFrame(CutterGetDataCmd, cutDataPayload(42, -310, 0x01, 0x80))...)

	if got := b.ProcessOnePacket(false, 50); got != CutDataPacketSize {
		t.Fatalf("ProcessOnePacket = %d, want %d", got, CutDataPacketSize)
	}

	d := b.CutData()
	if d == nil {
		t.Fatal("CutData is nil after decode")
	}
	if d.SequenceCount != 42 {
		t.Errorf("SequenceCount = %d, want 42", d.SequenceCount)
	}
	if d.DepthCount != -310 {
		t.Errorf("DepthCount = %d, want -310", d.DepthCount)
	}
	if d.StatusA != 0x01 || d.StatusB != 0x80 {
		t.Errorf("status bytes = %02X %02X, want 01 80", d.StatusA, d.StatusB)
	}
	if !b.NewDataReady() {
		t.Error("NewDataReady should be true after decode")
	}
}

// RequestCutData sends the request and returns the decoded reply when it
// is already waiting in the stream.
func TestRequestCutDataImmediateReply(t *testing.T) {
	b, conn := newTestCutterBoard(t)

	conn.feed(EncodeFrame(CutterGetDataCmd, cutDataPayload(1, 500, 0, 0))...)

	d := b.RequestCutData()
	if d == nil {
		t.Fatal("RequestCutData returned nil with a reply queued")
	}
	if d.DepthCount != 500 {
		t.Errorf("DepthCount = %d, want 500", d.DepthCount)
	}

	// The request frame went out before the reply was drained.
	want := EncodeCommand(CutterGetDataCmd, 0)
	if !bytes.HasPrefix(conn.wr.Bytes(), want) {
		t.Errorf("wrote % X, want prefix % X", conn.wr.Bytes(), want)
	}
}

func TestCutterChassisSlotDecode(t *testing.T) {
	b, conn := newTestCutterBoard(t)

	conn.feed(EncodeFrame(CutterChassisSlotCmd, []byte{0x2A, 0x00})...)

	if got := b.ProcessOnePacket(false, 50); got != 2 {
		t.Fatalf("ProcessOnePacket = %d, want 2", got)
	}
	chassis, slot := b.ChassisSlotAddress()
	if chassis != 2 || slot != 10 {
		t.Errorf("chassis:slot = %d:%d, want 2:10", chassis, slot)
	}
}

func TestCutterStatusDecode(t *testing.T) {
	b, conn := newTestCutterBoard(t)

	conn.feed(EncodeFrame(CutterGetStatusCmd, []byte{0x07, 0x00})...)

	if got := b.ProcessOnePacket(false, 50); got != 2 {
		t.Fatalf("ProcessOnePacket = %d, want 2", got)
	}
	if b.Status() != 0x07 {
		t.Errorf("Status = 0x%02X, want 0x07", b.Status())
	}
}
