// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Connection is the byte-stream contract the transport session depends
// on. The real board socket, the serial and WebSocket bridges, and the
// in-process simulator all implement it, so the engine never knows which
// one it is talking to.
//
// SetReadDeadline bounds a single Read; the session uses it both for the
// 250 ms receive timeout and for non-blocking buffer drains.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
}

// ErrConnectionClosed is returned when reading from a connection that has
// been closed by the remote end.
var ErrConnectionClosed = fmt.Errorf("connection closed")

// DialBoard opens the TCP connection to a board. Boards listen on the
// fixed telnet port.
func DialBoard(ipAddr string) (Connection, error) {
	addr := net.JoinHostPort(ipAddr, fmt.Sprintf("%d", BoardPort))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to board at %s: %w", addr, err)
	}
	return conn.(*net.TCPConn), nil
}

// SerialConnection adapts a serial port to the Connection contract, for
// boards wired through an RS-232 device server.
type SerialConnection struct {
	port     serial.Port
	deadline time.Time
}

// OpenSerialConnection opens a serial port at the given baud rate.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	timeout := time.Duration(0)
	if s.deadline.IsZero() {
		timeout = time.Hour
	} else if until := time.Until(s.deadline); until > 0 {
		timeout = until
	}
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

func (s *SerialConnection) SetReadDeadline(t time.Time) error {
	s.deadline = t
	return nil
}

// WebSocketConnection adapts a WebSocket connection carrying binary
// messages to the Connection contract, for boards behind a bridge. A
// background goroutine pumps messages into a channel so that a read
// timeout never poisons the underlying WebSocket.
type WebSocketConnection struct {
	conn     *websocket.Conn
	frames   chan []byte
	buf      []byte
	off      int
	deadline time.Time
}

// OpenWebSocketConnection dials a ws:// or wss:// URL and starts the
// message pump.
func OpenWebSocketConnection(wsURL string) (Connection, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	w := &WebSocketConnection{
		conn:   conn,
		frames: make(chan []byte, 16),
	}
	go w.pump()
	return w, nil
}

func (w *WebSocketConnection) pump() {
	defer close(w.frames)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		// Only binary messages carry board traffic.
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.frames <- data
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Serve buffered data from the previous message first.
	if w.off < len(w.buf) {
		n := copy(p, w.buf[w.off:])
		w.off += n
		return n, nil
	}

	var timer <-chan time.Time
	if !w.deadline.IsZero() {
		until := time.Until(w.deadline)
		if until < 0 {
			until = 0
		}
		t := time.NewTimer(until)
		defer t.Stop()
		timer = t.C
	}

	select {
	case data, ok := <-w.frames:
		if !ok {
			return 0, ErrConnectionClosed
		}
		w.buf = data
		w.off = 0
		n := copy(p, w.buf)
		w.off = n
		return n, nil
	case <-timer:
		return 0, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

func (w *WebSocketConnection) SetReadDeadline(t time.Time) error {
	w.deadline = t
	return nil
}
