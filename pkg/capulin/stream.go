// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import "time"

// rxStream buffers inbound bytes from a Connection and answers the
// "bytes currently available" query the packet reader is built around.
// It also owns the resynchronization state, so a resync started by one
// poll call carries over to the next.
type rxStream struct {
	conn Connection
	buf  []byte
	tmp  []byte

	// resynced is true when a resync already consumed a Magic0 byte, so
	// the next header read must skip the first magic position.
	resynced    bool
	resyncCount int
	resyncPktID byte
}

func newRxStream(conn Connection) *rxStream {
	return &rxStream{
		conn: conn,
		buf:  make([]byte, 0, RuntimePacketSize),
		tmp:  make([]byte, RuntimePacketSize),
	}
}

// pump drains whatever the transport has pending without blocking, by
// reading with an already-expired deadline. Read errors are swallowed
// here: a poll call reports "no packet", and transport faults surface
// through the session's own diagnostics.
func (s *rxStream) pump() {
	if s.conn == nil {
		return
	}
	s.conn.SetReadDeadline(time.Now())
	for {
		n, err := s.conn.Read(s.tmp)
		if n > 0 {
			s.buf = append(s.buf, s.tmp[:n]...)
		}
		if n == 0 || err != nil {
			return
		}
	}
}

// available returns the number of buffered bytes after draining the
// transport.
func (s *rxStream) available() int {
	s.pump()
	return len(s.buf)
}

// readByte consumes one buffered byte. Callers must have checked
// available() first.
func (s *rxStream) readByte() byte {
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b
}

// read consumes n buffered bytes into dst in one operation. Callers must
// have checked available() first.
func (s *rxStream) read(dst []byte, n int) int {
	copy(dst, s.buf[:n])
	s.buf = s.buf[n:]
	return n
}

// resync clears bytes from the buffer until a Magic0 byte is reached,
// which signals the *possible* start of a new valid header, or until the
// buffer is empty. When a Magic0 is found, resynced is left true so the
// next header read knows the byte has already been consumed.
//
// The invocation counter increments even when no Magic0 is found, so it
// tracks the total number of sync errors. activePktID records the packet
// type in effect before the corruption; it is overwritten by the next
// resync and is diagnostic only.
//
// There is a special case where a Magic0 byte sits just before the
// genuine magic sequence of a new packet (typically the checksum byte of
// the previous one). The resync consumes the genuine Magic0 too and the
// next packet is lost as well. This is rare and accepted.
func (s *rxStream) resync(activePktID byte) {
	s.resynced = false
	s.resyncCount++
	s.resyncPktID = activePktID

	for s.available() > 0 {
		if s.readByte() == Magic0 {
			s.resynced = true
			break
		}
	}
}
