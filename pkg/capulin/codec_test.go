// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

// ============================================================
// Magic matching
// ============================================================

func TestMatchesMagic(t *testing.T) {
	tests := []struct {
		name string
		pos  int
		b    byte
		want bool
	}{
		{"position 0 match", 0, 0xAA, true},
		{"position 1 match", 1, 0x55, true},
		{"position 2 match", 2, 0xBB, true},
		{"position 3 match", 3, 0x66, true},
		{"position 0 mismatch", 0, 0x55, false},
		{"position 3 mismatch", 3, 0xAA, false},
		{"position out of range", 4, 0xAA, false},
		{"negative position", -1, 0xAA, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesMagic(tt.pos, tt.b); got != tt.want {
				t.Errorf("MatchesMagic(%d, 0x%02X) = %v, want %v", tt.pos, tt.b, got, tt.want)
			}
		})
	}
}

// ============================================================
// Big-endian field decode
// ============================================================

func TestDecodeInt32(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want int32
	}{
		{"zero", []byte{0x00, 0x00, 0x00, 0x00}, 0},
		{"one", []byte{0x00, 0x00, 0x00, 0x01}, 1},
		{"max", []byte{0x7F, 0xFF, 0xFF, 0xFF}, 2147483647},
		{"minus one", []byte{0xFF, 0xFF, 0xFF, 0xFF}, -1},
		{"min", []byte{0x80, 0x00, 0x00, 0x00}, -2147483648},
		{"mixed", []byte{0x00, 0x01, 0x02, 0x03}, 0x010203},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeInt32(tt.b); got != tt.want {
				t.Errorf("DecodeInt32(% X) = %d, want %d", tt.b, got, tt.want)
			}
		})
	}
}

func TestDecodeUint16(t *testing.T) {
	if got := DecodeUint16([]byte{0x01, 0x53}); got != 0x0153 {
		t.Errorf("DecodeUint16 = 0x%04X, want 0x0153", got)
	}
	if got := DecodeUint16([]byte{0xFF, 0xFF}); got != 0xFFFF {
		t.Errorf("DecodeUint16 = 0x%04X, want 0xFFFF", got)
	}
}

// SplitUint16 feeds outbound parameters; a 16-bit trigger value 0x0153
// must go out as bytes 01 53, matching decode order.
func TestSplitUint16(t *testing.T) {
	hi, lo := SplitUint16(0x0153)
	if hi != 0x01 || lo != 0x53 {
		t.Errorf("SplitUint16(0x0153) = %02X %02X, want 01 53", hi, lo)
	}
}

// ============================================================
// Command frames
// ============================================================

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name   string
		cmd    byte
		params []byte
		want   []byte
	}{
		{
			name: "no params",
			cmd:  GetAllEncoderValuesCmd,
			want: []byte{0xAA, 0x55, 0xBB, 0x66, 19},
		},
		{
			name:   "single zero param",
			cmd:    StartInspectCmd,
			params: []byte{0},
			want:   []byte{0xAA, 0x55, 0xBB, 0x66, 8, 0},
		},
		{
			name:   "delta trigger pair",
			cmd:    SetEncodersDeltaTrigger,
			params: []byte{0x01, 0x53, 0x01, 0x53},
			want:   []byte{0xAA, 0x55, 0xBB, 0x66, 7, 0x01, 0x53, 0x01, 0x53},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCommand(tt.cmd, tt.params...)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeCommand = % X, want % X", got, tt.want)
			}
		})
	}
}

// ============================================================
// Round trip
// ============================================================

// Decoding an inspect payload and re-encoding its fields must reproduce
// the original bytes exactly.
func TestFieldRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 200; round++ {
		payload := make([]byte, InspectPacketSize)
		binary.BigEndian.PutUint16(payload[0:2], uint16(rng.Uint32()))
		binary.BigEndian.PutUint32(payload[2:6], rng.Uint32())
		binary.BigEndian.PutUint32(payload[6:10], rng.Uint32())
		payload[10] = byte(rng.Uint32())
		payload[11] = byte(rng.Uint32())

		seq := DecodeUint16(payload[0:2])
		enc1 := DecodeInt32(payload[2:6])
		enc2 := DecodeInt32(payload[6:10])

		reencoded := make([]byte, InspectPacketSize)
		hi, lo := SplitUint16(seq)
		reencoded[0], reencoded[1] = hi, lo
		binary.BigEndian.PutUint32(reencoded[2:6], uint32(enc1))
		binary.BigEndian.PutUint32(reencoded[6:10], uint32(enc2))
		reencoded[10] = payload[10]
		reencoded[11] = payload[11]

		if !bytes.Equal(payload, reencoded) {
			t.Fatalf("round %d: round trip mismatch:\n  original:  % X\n  reencoded: % X",
				round, payload, reencoded)
		}
	}
}
