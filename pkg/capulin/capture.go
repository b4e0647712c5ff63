// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CapturedFrame is one recorded board-to-host frame. Capture files hold
// a CBOR stream of these; the simulator replays them as its data source.
type CapturedFrame struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	PktType   byte      `cbor:"2,keyasint"`
	Payload   []byte    `cbor:"3,keyasint"`
}

// CaptureWriter appends frames to a capture file as a CBOR stream.
type CaptureWriter struct {
	f   *os.File
	enc *cbor.Encoder
}

// NewCaptureWriter creates (or truncates) a capture file.
func NewCaptureWriter(path string) (*CaptureWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	return &CaptureWriter{f: f, enc: cbor.NewEncoder(f)}, nil
}

// Record appends one frame. The payload is copied, so callers may reuse
// their buffer.
func (w *CaptureWriter) Record(pktType byte, payload []byte) error {
	frame := CapturedFrame{
		Timestamp: time.Now(),
		PktType:   pktType,
		Payload:   append([]byte(nil), payload...),
	}
	if err := w.enc.Encode(frame); err != nil {
		return fmt.Errorf("failed to record frame: %w", err)
	}
	return nil
}

// Close flushes and closes the capture file.
func (w *CaptureWriter) Close() error {
	return w.f.Close()
}

// ReadCaptureFile loads all frames from a capture file.
func ReadCaptureFile(path string) ([]CapturedFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	var frames []CapturedFrame
	dec := cbor.NewDecoder(f)
	for {
		var frame CapturedFrame
		if err := dec.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode capture file %s: %w", path, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
