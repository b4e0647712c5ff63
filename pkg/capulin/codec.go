// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import "encoding/binary"

// Frame codec: pure helpers for the wire-level byte layout. No I/O here;
// the packet reader and command encoder build on these.

// magic is the frame header sequence in transmit order.
var magic = [MagicSize]byte{Magic0, Magic1, Magic2, Magic3}

// MatchesMagic reports whether b is the expected magic byte for header
// position pos (0-3). Out-of-range positions never match.
func MatchesMagic(pos int, b byte) bool {
	if pos < 0 || pos >= MagicSize {
		return false
	}
	return b == magic[pos]
}

// DecodeInt32 reconstructs a signed 32-bit value from four big-endian
// bytes. Encoder counts are transmitted in this form.
func DecodeInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b[:4]))
}

// DecodeUint16 reconstructs an unsigned 16-bit value from two big-endian
// bytes. Sequence counters use this form.
func DecodeUint16(b []byte) uint16 {
	return binary.BigEndian.Uint16(b[:2])
}

// SplitUint16 splits a 16-bit outbound parameter into high and low bytes,
// high byte first, matching the decode order on the board.
func SplitUint16(v uint16) (hi, lo byte) {
	return byte(v >> 8), byte(v)
}

// EncodeCommand builds a complete outbound command frame: magic header,
// command byte, then the parameter bytes verbatim.
func EncodeCommand(cmd byte, params ...byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(params))
	frame = append(frame, magic[:]...)
	frame = append(frame, cmd)
	frame = append(frame, params...)
	return frame
}

// EncodeFrame builds an inbound-style frame (header, type, payload). The
// simulator and tests use it to produce board replies.
func EncodeFrame(pktType byte, payload []byte) []byte {
	return EncodeCommand(pktType, payload...)
}
