// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import "time"

// PacketHandler is one entry in a board's packet-type table: the fixed
// payload size for that type and the decode routine that stores the
// fields into the board facade.
//
// The payload slice passed to Decode is reused across calls; decode
// routines must copy anything they retain.
type PacketHandler struct {
	Size   int
	Decode func(payload []byte)
}

// ProcessOnePacket processes a single packet if one is available. When
// wait is true it sleeps in 10 ms ticks until at least the header and
// type byte are buffered, or timeoutTicks ticks elapse.
//
// This should be called often to drain packets the board has pushed into
// the socket buffer.
//
// Returns the number of payload bytes consumed (excluding the four
// header bytes and the type byte) when a packet was decoded. Returns 0
// when bytes were read but no packet could be processed: a header
// mismatch (which triggers a resync), an unknown type, or a payload that
// never arrived. Returns -1 when the buffer does not contain a packet.
// No error ever propagates out of this call; transport faults are logged
// and absorbed.
func (s *Session) ProcessOnePacket(wait bool, timeoutTicks int) int {
	if s.rx == nil || s.rx.conn == nil {
		return -1
	}
	rx := s.rx

	if wait {
		for t := 0; rx.available() < HeaderSize && t < timeoutTicks; t++ {
			time.Sleep(tickMs * time.Millisecond)
		}
	}

	// Header bytes plus the packet identifier must all be present.
	if rx.available() < HeaderSize {
		return -1
	}

	// Read the magic bytes one at a time so an invalid byte can't
	// corrupt the next valid sequence when it falls within three bytes
	// of it. Any mismatch discards bytes up to the next plausible frame
	// start; after a resync the call exits without processing a packet.
	//
	// If a previous resync already pulled a Magic0 from the stream, skip
	// the first read; the flag carries that state across calls.
	if !rx.resynced {
		if rx.readByte() != Magic0 {
			s.reSync()
			return 0
		}
	} else {
		rx.resynced = false
	}

	if rx.readByte() != Magic1 {
		s.reSync()
		return 0
	}
	if rx.readByte() != Magic2 {
		s.reSync()
		return 0
	}
	if rx.readByte() != Magic3 {
		s.reSync()
		return 0
	}

	s.pktID = rx.readByte()

	handler, ok := s.handlers[s.pktID]
	if !ok {
		// A protocol version this host doesn't fully know. The type byte
		// is consumed and the engine moves on; it must never crash here.
		s.stats.UnknownTypes++
		return 0
	}

	// Bounded wait for the fixed-size payload, then read it in one
	// operation.
	for t := 0; rx.available() < handler.Size && t < timeoutTicks; t++ {
		time.Sleep(tickMs * time.Millisecond)
	}
	if rx.available() < handler.Size {
		s.stats.Timeouts++
		s.logf("payload timeout for packet type 0x%02X (expected %d bytes, have %d)",
			s.pktID, handler.Size, rx.available())
		return 0
	}

	rx.read(s.payloadBuf, handler.Size)
	handler.Decode(s.payloadBuf[:handler.Size])
	s.stats.PacketsProcessed++

	if s.onPacket != nil {
		s.onPacket(s.pktID, s.payloadBuf[:handler.Size])
	}

	return handler.Size
}

// ProcessUntil processes packets until one of the target type has been
// decoded or no further packets are available. Returns 1 when the target
// was decoded, -1 when the buffer ran dry first.
func (s *Session) ProcessUntil(target byte, timeoutTicks int) int {
	for {
		n := s.ProcessOnePacket(false, timeoutTicks)
		if n > 0 && s.pktID == target {
			return 1
		}
		if n <= 0 {
			return -1
		}
	}
}

// reSync delegates to the stream's resynchronizer and mirrors its
// diagnostic counters into the session statistics.
func (s *Session) reSync() {
	s.rx.resync(s.pktID)
	s.stats.ResyncEvents = uint64(s.rx.resyncCount)
	s.stats.LastResyncPktType = s.rx.resyncPktID
}
