// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// SessionState tracks the connection lifecycle of a board session.
type SessionState int

const (
	Unconnected SessionState = iota
	Connecting
	Ready
	Failed
)

func (s SessionState) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrNotReady is returned by WaitReady when the session reached the
// Failed state instead of Ready.
var ErrNotReady = fmt.Errorf("session failed to reach ready state")

// Session owns the connection to one board: the transport, the receive
// stream, the connection lifecycle and the outbound command side. It is
// created once per board at startup and shut down at exit. The board
// facade owns it exclusively.
//
// Connect is intended to run once on a dedicated goroutine; other
// goroutines observe readiness through WaitReady or State and drive
// packet processing by polling ProcessOnePacket.
type Session struct {
	// BoardName identifies the board in diagnostics.
	BoardName string

	// IPAddr is the address resolved by the external roll-call
	// mechanism. Left empty when the board never answered; Connect then
	// reports the board unreachable without attempting a connection.
	IPAddr string

	// Dialer overrides the transport. Nil means TCP to IPAddr; the
	// simulator, serial and WebSocket transports plug in here.
	Dialer func() (Connection, error)

	conn Connection
	rx   *rxStream

	handlers   map[byte]PacketHandler
	pktID      byte
	payloadBuf []byte
	onPacket   func(pktType byte, payload []byte)

	stats *Statistics
	logf  func(format string, args ...interface{})

	mu       sync.Mutex
	state    SessionState
	greeting string
	done     chan struct{}
	shutOnce sync.Once
}

// NewSession creates a session for one board. ipAddr may be empty when
// discovery failed; the session will then refuse to connect.
func NewSession(boardName, ipAddr string) *Session {
	s := &Session{
		BoardName:  boardName,
		IPAddr:     ipAddr,
		payloadBuf: make([]byte, RuntimePacketSize),
		stats:      NewStatistics(),
		done:       make(chan struct{}),
	}
	s.logf = func(format string, args ...interface{}) {
		log.Printf("["+s.BoardName+"] "+format, args...)
	}
	return s
}

// SetPacketTable installs the board's packet-type table. Called by the
// board facade before Connect.
func (s *Session) SetPacketTable(table map[byte]PacketHandler) {
	s.handlers = table
}

// SetPacketCallback installs an observer invoked after every decoded
// packet, with the type byte and payload. The payload slice is reused
// across packets; observers must copy what they keep. Used by the
// capture recorder.
func (s *Session) SetPacketCallback(fn func(pktType byte, payload []byte)) {
	s.onPacket = fn
}

// SetLogger replaces the diagnostic logger. Mainly for tests.
func (s *Session) SetLogger(logf func(format string, args ...interface{})) {
	s.logf = logf
}

// Stats returns the session's transport counters.
func (s *Session) Stats() *Statistics {
	return s.stats
}

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Greeting returns the text line the board sent after connecting.
func (s *Session) Greeting() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeting
}

// LastPacketType returns the type byte of the most recently seen packet.
func (s *Session) LastPacketType() byte {
	return s.pktID
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// fail marks the session Failed and releases every waiter. Never called
// twice with effect; the done channel closes once.
func (s *Session) fail() {
	s.setState(Failed)
	s.shutOnce.Do(func() { close(s.done) })
}

// Connect opens the transport, reads the board's greeting line and marks
// the session Ready. It is intended to be invoked exactly once from a
// dedicated goroutine; that goroutine should then park, since it owns
// the connection.
//
// Connect never returns an error: failures are logged, the session is
// marked Failed, and callers poll readiness instead of assuming it. One
// board failing to connect must not disturb the others.
func (s *Session) Connect() {
	if s.IPAddr == "" && s.Dialer == nil {
		s.logf("board never responded to roll call and cannot be contacted")
		s.fail()
		return
	}

	s.setState(Connecting)
	s.logf("opening connection with board at %s", s.IPAddr)

	dial := s.Dialer
	if dial == nil {
		dial = func() (Connection, error) { return DialBoard(s.IPAddr) }
	}

	conn, err := dial()
	if err != nil {
		s.logf("couldn't get I/O for %s: %v", s.IPAddr, err)
		s.fail()
		return
	}

	s.conn = conn
	s.rx = newRxStream(conn)

	// The board announces itself with one text line before switching to
	// binary packets.
	greeting := s.readGreeting()
	s.mu.Lock()
	s.greeting = greeting
	s.state = Ready
	s.mu.Unlock()

	s.logf("%s says %q", s.IPAddr, greeting)

	// Wake up everything blocked on connection completion.
	s.shutOnce.Do(func() { close(s.done) })
}

// readGreeting reads the greeting line byte by byte. A buffered text
// reader would swallow packet bytes that follow the newline, so the
// bytes are pulled one at a time under the receive timeout.
func (s *Session) readGreeting() string {
	var sb strings.Builder
	one := make([]byte, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.conn.SetReadDeadline(time.Now().Add(receiveTimeoutMs * time.Millisecond))
		n, err := s.conn.Read(one)
		if n == 0 {
			if err != nil && err != ErrConnectionClosed {
				continue
			}
			if err == ErrConnectionClosed {
				break
			}
			continue
		}
		if one[0] == '\n' {
			break
		}
		if one[0] != '\r' {
			sb.WriteByte(one[0])
		}
	}

	return sb.String()
}

// WaitReady blocks until the session reaches a terminal state or the
// context is cancelled. Any number of goroutines may wait; all are
// released together.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
	}
	if s.State() != Ready {
		return ErrNotReady
	}
	return nil
}

// SendCommand builds a command frame and writes it to the board. The
// call is fire-and-forget: no acknowledgment is awaited, and any reply
// arrives later as a normal packet through the dispatcher. Multi-byte
// parameters must already be split big-endian, high byte first.
func (s *Session) SendCommand(cmd byte, params ...byte) {
	if s.conn == nil {
		return
	}
	if _, err := s.conn.Write(EncodeCommand(cmd, params...)); err != nil {
		s.logf("write error sending command 0x%02X: %v", cmd, err)
		s.fail()
		return
	}
	s.stats.CommandsSent++
}

// ShutDown closes the transport. Idempotent: closing an already-closed
// or never-opened session is a no-op.
func (s *Session) ShutDown() {
	s.shutOnce.Do(func() { close(s.done) })
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logf("error closing connection: %v", err)
		}
		s.conn = nil
	}
	if s.rx != nil {
		s.rx.conn = nil
	}
	s.setState(Unconnected)
}
