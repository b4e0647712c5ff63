// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"fmt"
	"strings"
)

// Human-readable renderings of decoded board state for CLI display.

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "off"
}

// FormatInspectState renders an inspect snapshot on one line.
func FormatInspectState(st *InspectState) string {
	if st == nil {
		return "inspect: (no packet yet)"
	}
	return fmt.Sprintf(
		"inspect #%05d  enc1=%d (%s)  enc2=%d (%s)  on-pipe=%s head1=%s head2=%s tdc=%s",
		st.SequenceCount,
		st.Encoder1, st.Encoder1Dir,
		st.Encoder2, st.Encoder2Dir,
		onOff(st.OnPipe), onOff(st.Head1Down), onOff(st.Head2Down), onOff(st.TDC),
	)
}

// FormatEncoderValues renders the latched milestone positions.
func FormatEncoderValues(e *EncoderValues) string {
	if e == nil || !e.Received() {
		return "encoder values: (not received)"
	}
	var sb strings.Builder
	sb.WriteString("encoder positions:\n")
	fmt.Fprintf(&sb, "  at on-pipe signal:   %11d\n", e.AtOnPipe)
	fmt.Fprintf(&sb, "  at off-pipe signal:  %11d\n", e.AtOffPipe)
	fmt.Fprintf(&sb, "  at head 1 down:      %11d\n", e.AtHead1Down)
	fmt.Fprintf(&sb, "  at head 1 up:        %11d\n", e.AtHead1Up)
	fmt.Fprintf(&sb, "  at head 2 down:      %11d\n", e.AtHead2Down)
	fmt.Fprintf(&sb, "  at head 2 up:        %11d\n", e.AtHead2Up)
	return sb.String()
}

// FormatMonitorPacket renders the raw I/O snapshot bytes as a hex dump
// with the inputs of the first port byte picked out. Monitor inputs are
// active low.
func FormatMonitorPacket(buf []byte) string {
	if len(buf) == 0 {
		return "monitor: (no packet yet)"
	}

	var sb strings.Builder
	sb.WriteString("monitor I/O: ")
	for i, b := range buf {
		if i > 0 && i%8 == 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	sb.WriteString("\n")

	portA := buf[0]
	fmt.Fprintf(&sb, "  on-pipe=%s inspect=%s",
		onOff(portA&OnPipeMask == 0), onOff(portA&InspectMask == 0))
	return sb.String()
}

// FormatCutData renders a cutter data packet on one line.
func FormatCutData(d *CutData) string {
	if d == nil {
		return "cut data: (no packet yet)"
	}
	return fmt.Sprintf("cut data #%05d  depth=%d  statusA=0x%02X statusB=0x%02X",
		d.SequenceCount, d.DepthCount, d.StatusA, d.StatusB)
}
