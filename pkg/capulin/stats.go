// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenNDT

package capulin

import (
	"fmt"
	"time"
)

// Statistics tracks per-session transport counters. One instance lives in
// each Session; nothing here is process-global, so two boards never share
// diagnostics.
type Statistics struct {
	StartTime time.Time

	PacketsProcessed uint64
	ResyncEvents     uint64
	UnknownTypes     uint64
	Timeouts         uint64
	CommandsSent     uint64

	// LastResyncPktType is the packet type that was active before the
	// most recent stream corruption. Diagnostic only.
	LastResyncPktType byte
}

// NewStatistics creates a statistics tracker with the clock started.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// PacketRate returns the average decoded-packet rate since start.
func (s *Statistics) PacketRate() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.PacketsProcessed) / elapsed
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Session Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Packets Processed: %8d\n", s.PacketsProcessed)
	result += fmt.Sprintf("Commands Sent:     %8d\n", s.CommandsSent)
	if s.ResyncEvents > 0 {
		result += fmt.Sprintf("Resync Events:     %8d (last preceded by packet type 0x%02X)\n",
			s.ResyncEvents, s.LastResyncPktType)
	}
	if s.UnknownTypes > 0 {
		result += fmt.Sprintf("Unknown Types:     %8d\n", s.UnknownTypes)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Payload Timeouts:  %8d\n", s.Timeouts)
	}
	result += fmt.Sprintf("Packet Rate:       %8.1f pkts/sec\n", s.PacketRate())
	result += "=====================================\n"

	return result
}

// Reset clears all counters and restarts the clock.
func (s *Statistics) Reset() {
	*s = Statistics{StartTime: time.Now()}
}
