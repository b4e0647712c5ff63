// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"encoding/binary"
	"sync"
	"time"
)

// simulator is an in-process stand-in for a board socket. It implements
// the same Connection contract the real transports do, so the session
// and engine run unmodified in simulate mode.
//
// The simulator is passive: it only produces bytes when the host reads,
// which matches the polling model of the engine. Commands written by the
// host are parsed and answered with frames built by the board-specific
// handler. When a capture file is configured, its frames are replayed
// ahead of generated data.
type simulator struct {
	mu     sync.Mutex
	tx     []byte // bytes queued for the host to read
	rx     []byte // command bytes written by the host, pending parse
	closed bool

	// paramLens gives the fixed parameter count per command so command
	// frames can be delimited in the write stream.
	paramLens map[byte]int

	// handle reacts to one parsed command, queueing reply frames via
	// send. step runs once per host read to generate unsolicited
	// traffic (inspect packets during an inspection, replay frames).
	handle func(cmd byte, params []byte)
	step   func()

	replay [][]byte
}

func newSimulator(greeting string) *simulator {
	s := &simulator{}
	s.tx = append(s.tx, []byte(greeting+"\n")...)
	return s
}

// send queues a board-to-host frame.
func (s *simulator) send(pktType byte, payload []byte) {
	s.tx = append(s.tx, EncodeFrame(pktType, payload)...)
}

// sendRaw queues pre-framed bytes, e.g. a replayed capture frame.
func (s *simulator) sendRaw(frame []byte) {
	s.tx = append(s.tx, frame...)
}

func (s *simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrConnectionClosed
	}

	s.parseCommands()
	if s.step != nil {
		s.step()
	}

	if len(s.tx) == 0 {
		return 0, nil
	}
	n := copy(p, s.tx)
	s.tx = s.tx[n:]
	return n, nil
}

func (s *simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrConnectionClosed
	}
	s.rx = append(s.rx, p...)
	return len(p), nil
}

func (s *simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *simulator) SetReadDeadline(t time.Time) error {
	return nil
}

// parseCommands delimits and dispatches complete command frames from the
// host write stream. Called with the lock held.
func (s *simulator) parseCommands() {
	for {
		if len(s.rx) < HeaderSize {
			return
		}
		// The host encoder always emits a correct header; skip a byte if
		// it somehow doesn't line up.
		if s.rx[0] != Magic0 || s.rx[1] != Magic1 || s.rx[2] != Magic2 || s.rx[3] != Magic3 {
			s.rx = s.rx[1:]
			continue
		}

		cmd := s.rx[4]
		paramLen := s.paramLens[cmd]
		if len(s.rx) < HeaderSize+paramLen {
			return
		}

		params := make([]byte, paramLen)
		copy(params, s.rx[HeaderSize:HeaderSize+paramLen])
		s.rx = s.rx[HeaderSize+paramLen:]

		if s.handle != nil {
			s.handle(cmd, params)
		}
	}
}

// popReplayFrame feeds one captured frame per idle read, so replayed
// traffic trickles in the way live traffic would.
func (s *simulator) popReplayFrame() {
	if len(s.tx) == 0 && len(s.replay) > 0 {
		s.sendRaw(s.replay[0])
		s.replay = s.replay[1:]
	}
}

// simStepInterval paces the simulated mechanics. Unsolicited packets are
// produced at most this often, so a host draining the connection always
// reaches an empty read.
const simStepInterval = 5 * time.Millisecond

// controlSimulator models the inspection control board.
type controlSimulator struct {
	*simulator

	inspecting bool
	monitoring bool
	lastStep   time.Time
	seq        uint16
	encoder1   int32
	encoder2   int32
	delta1     int32
	delta2     int32
	onPipe     bool
}

// NewControlSimulator creates a simulated inspection board. When the
// configuration names a simulation data source, the capture file's
// frames are replayed before any generated traffic.
func NewControlSimulator(cfg BoardConfig) (Connection, error) {
	c := &controlSimulator{
		simulator: newSimulator("Control Board Simulator"),
		delta1:    int32(cfg.Encoder1DeltaTrigger),
		delta2:    int32(cfg.Encoder2DeltaTrigger),
	}

	if cfg.SimulationDataSource != "" {
		frames, err := ReadCaptureFile(cfg.SimulationDataSource)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			c.replay = append(c.replay, EncodeFrame(f.PktType, f.Payload))
		}
	}

	c.paramLens = map[byte]int{
		GetInspectPacketCmd:     1,
		ZeroEncodersCmd:         1,
		GetMonitorPacketCmd:     1,
		PulseOutputCmd:          1,
		TurnOnOutputCmd:         1,
		TurnOffOutputCmd:        1,
		SetEncodersDeltaTrigger: 4,
		StartInspectCmd:         1,
		StopInspectCmd:          1,
		StartMonitorCmd:         1,
		StopMonitorCmd:          1,
		GetStatusCmd:            1,
		SetControlFlagsCmd:      2,
		ResetTrackCountersCmd:   1,
	}
	c.handle = c.handleCommand
	c.step = c.stepSimulation

	return c, nil
}

func (c *controlSimulator) handleCommand(cmd byte, params []byte) {
	switch cmd {
	case GetStatusCmd:
		c.send(GetStatusCmd, []byte{NoAction, 0})
	case GetChassisSlotAddrCmd:
		// Chassis 0, slot 1.
		c.send(GetChassisSlotAddrCmd, []byte{0x01, 0})
	case GetInspectPacketCmd:
		c.sendInspectPacket()
	case GetMonitorPacketCmd:
		c.sendMonitorPacket()
	case GetAllEncoderValuesCmd:
		c.sendAllEncoderValues()
	case ZeroEncodersCmd:
		c.encoder1, c.encoder2 = 0, 0
	case StartInspectCmd:
		c.inspecting = true
		c.onPipe = true
	case StopInspectCmd:
		c.inspecting = false
		c.onPipe = false
	case StartMonitorCmd:
		c.monitoring = true
	case StopMonitorCmd:
		c.monitoring = false
	case SetEncodersDeltaTrigger:
		c.delta1 = int32(binary.BigEndian.Uint16(params[0:2]))
		c.delta2 = int32(binary.BigEndian.Uint16(params[2:4]))
	}
}

// stepSimulation advances the mechanical model: while inspecting, the
// piece moves one delta trigger per step interval and an inspect packet
// goes out, the way the real board reports on encoder movement.
func (c *controlSimulator) stepSimulation() {
	c.popReplayFrame()

	if !c.inspecting || len(c.tx) > 0 {
		return
	}
	if time.Since(c.lastStep) < simStepInterval {
		return
	}
	c.lastStep = time.Now()

	c.encoder1 += c.delta1
	c.encoder2 += c.delta2
	c.sendInspectPacket()
}

func (c *controlSimulator) sendInspectPacket() {
	c.seq++

	payload := make([]byte, InspectPacketSize)
	binary.BigEndian.PutUint16(payload[0:2], c.seq)
	binary.BigEndian.PutUint32(payload[2:6], uint32(c.encoder1))
	binary.BigEndian.PutUint32(payload[6:10], uint32(c.encoder2))

	var ctrl byte
	if c.onPipe {
		ctrl |= OnPipeCtrl | Head1DownCtrl | Head2DownCtrl
	}
	payload[10] = ctrl
	// Port E is active low: all signals deasserted.
	payload[11] = 0xFF

	c.send(GetInspectPacketCmd, payload)
}

func (c *controlSimulator) sendMonitorPacket() {
	payload := make([]byte, MonitorPacketSize)
	for i := range payload {
		payload[i] = 0xFF // all inputs deasserted (active low)
	}
	if c.inspecting {
		payload[0] &^= OnPipeMask
	}
	c.send(GetMonitorPacketCmd, payload)
}

func (c *controlSimulator) sendAllEncoderValues() {
	payload := make([]byte, AllEncodersPacketSize)
	positions := []int32{
		0,            // at on-pipe
		c.encoder1,   // at off-pipe
		c.delta1,     // at head 1 down
		c.encoder1,   // at head 1 up
		c.delta1 * 2, // at head 2 down
		c.encoder1,   // at head 2 up
	}
	for i, v := range positions {
		binary.BigEndian.PutUint32(payload[i*4:i*4+4], uint32(v))
	}
	c.send(GetAllEncoderValuesCmd, payload)
}

// cutterSimulator models the notch-cutter board.
type cutterSimulator struct {
	*simulator

	cutting bool
	seq     uint16
	depth   int32
}

// NewCutterSimulator creates a simulated cutter board.
func NewCutterSimulator(cfg BoardConfig) (Connection, error) {
	c := &cutterSimulator{
		simulator: newSimulator("Cutter Board Simulator"),
	}

	if cfg.SimulationDataSource != "" {
		frames, err := ReadCaptureFile(cfg.SimulationDataSource)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			c.replay = append(c.replay, EncodeFrame(f.PktType, f.Payload))
		}
	}

	c.paramLens = map[byte]int{
		CutterStartCutCmd:  1,
		CutterStopCutCmd:   1,
		CutterZeroDepthCmd: 1,
		CutterGetDataCmd:   1,
		CutterGetStatusCmd: 1,
	}
	c.handle = c.handleCommand
	c.step = c.popReplayFrame

	return c, nil
}

func (c *cutterSimulator) handleCommand(cmd byte, params []byte) {
	switch cmd {
	case CutterGetStatusCmd:
		c.send(CutterGetStatusCmd, []byte{NoAction, 0})
	case CutterChassisSlotCmd:
		c.send(CutterChassisSlotCmd, []byte{0x02, 0})
	case CutterStartCutCmd:
		c.cutting = true
	case CutterStopCutCmd:
		c.cutting = false
	case CutterZeroDepthCmd:
		c.depth = 0
	case CutterGetDataCmd:
		if c.cutting {
			c.depth += 10
		}
		c.seq++
		payload := make([]byte, CutDataPacketSize)
		binary.BigEndian.PutUint16(payload[0:2], c.seq)
		binary.BigEndian.PutUint32(payload[2:6], uint32(c.depth))
		if c.cutting {
			payload[6] = 0x01
		}
		c.send(CutterGetDataCmd, payload)
	}
}
