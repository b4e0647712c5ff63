// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func TestCaptureWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor")

	w, err := NewCaptureWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	// Reuse one buffer across records, the way the packet callback does.
	buf := make([]byte, InspectPacketSize)
	for i := range buf {
		buf[i] = 0x11
	}
	if err := w.Record(GetInspectPacketCmd, buf); err != nil {
		t.Fatal(err)
	}
	for i := range buf {
		buf[i] = 0x22
	}
	if err := w.Record(GetInspectPacketCmd, buf[:2]); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	frames, err := ReadCaptureFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	if frames[0].PktType != GetInspectPacketCmd {
		t.Errorf("frame 0 type = 0x%02X, want 0x%02X", frames[0].PktType, GetInspectPacketCmd)
	}
	// The first frame must hold the 0x11 bytes: Record copies the
	// payload, so reusing the buffer cannot corrupt earlier frames.
	if !bytes.Equal(frames[0].Payload, bytes.Repeat([]byte{0x11}, InspectPacketSize)) {
		t.Errorf("frame 0 payload = % X", frames[0].Payload)
	}
	if !bytes.Equal(frames[1].Payload, []byte{0x22, 0x22}) {
		t.Errorf("frame 1 payload = % X", frames[1].Payload)
	}
	if frames[0].Timestamp.IsZero() || frames[0].Timestamp.After(time.Now()) {
		t.Errorf("frame 0 timestamp = %v", frames[0].Timestamp)
	}
}

func TestReadCaptureFileMissing(t *testing.T) {
	if _, err := ReadCaptureFile(filepath.Join(t.TempDir(), "nope.cbor")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

// A capture file named as the simulation data source is replayed through
// the simulator ahead of generated traffic.
func TestSimulatorReplaysCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.cbor")

	w, err := NewCaptureWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	payload := inspectPayload(99, 1234, -1234, OnPipeCtrl, 0xFF)
	if err := w.Record(GetInspectPacketCmd, payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultBoardConfig("replay control")
	cfg.Simulate = true
	cfg.SimulationDataSource = path
	b := NewControlBoard(cfg)
	b.Session().SetLogger(t.Logf)

	b.Connect()
	if b.Session().State() != Ready {
		t.Fatal("simulator connect failed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.InspectState() == nil && time.Now().Before(deadline) {
		if b.ProcessUntilInspectPacket() != 1 {
			time.Sleep(tickMs * time.Millisecond)
		}
	}

	st := b.InspectState()
	if st == nil {
		t.Fatal("replayed inspect packet never arrived")
	}
	if st.SequenceCount != 99 || st.Encoder1 != 1234 || st.Encoder2 != -1234 {
		t.Errorf("replayed state = %+v", *st)
	}

	b.ShutDown()
}

func TestSimulatorBadDataSource(t *testing.T) {
	cfg := DefaultBoardConfig("broken")
	cfg.Simulate = true
	cfg.SimulationDataSource = filepath.Join(t.TempDir(), "missing.cbor")

	if _, err := NewControlSimulator(cfg); err == nil {
		t.Fatal("expected an error for a missing data source")
	}
}
