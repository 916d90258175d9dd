/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
	"github.com/shirou/gopsutil/v3/net"
)

// Dependency injection points for testing
var (
	netIOCounters = net.IOCountersWithContext
)

// NetworkCounters reads cumulative host-wide network counters.
// Per-interface counters are summed after filtering.
type NetworkCounters struct {
	includeInterfaces []string // Interfaces to count (empty = all)
	excludeInterfaces []string // Interfaces to skip
	now               func() time.Time
}

// NewNetworkCounters creates a counter reader.
// includeInterfaces: list of interface names to count (empty = all available)
// excludeInterfaces: list of interface names to exclude
func NewNetworkCounters(includeInterfaces, excludeInterfaces []string) *NetworkCounters {
	return &NetworkCounters{
		includeInterfaces: includeInterfaces,
		excludeInterfaces: excludeInterfaces,
		now:               time.Now,
	}
}

// Snapshot returns the summed counters of every monitored interface.
func (n *NetworkCounters) Snapshot(ctx context.Context) (metrics.CounterSnapshot, error) {
	ioCounters, err := netIOCounters(ctx, true)
	if err != nil {
		return metrics.CounterSnapshot{}, fmt.Errorf("failed to get network I/O counters: %w", err)
	}

	snap := metrics.CounterSnapshot{Timestamp: n.now()}
	matched := 0

	for _, counter := range ioCounters {
		// Skip loopback interfaces
		if isLoopback(counter.Name) {
			continue
		}

		// Apply filters
		if !n.shouldMonitor(counter.Name) {
			continue
		}

		snap.BytesSent += counter.BytesSent
		snap.BytesRecv += counter.BytesRecv
		snap.PacketsSent += counter.PacketsSent
		snap.PacketsRecv += counter.PacketsRecv
		matched++
	}

	if matched == 0 {
		return snap, fmt.Errorf("no network interfaces matched the filters")
	}

	return snap, nil
}

// isLoopback checks if an interface is a loopback interface.
func isLoopback(interfaceName string) bool {
	// Common loopback interface names
	loopbacks := []string{"lo", "lo0", "Loopback"}
	for _, lo := range loopbacks {
		if interfaceName == lo {
			return true
		}
	}
	return false
}

// shouldMonitor checks if an interface should be counted based on include/exclude filters.
func (n *NetworkCounters) shouldMonitor(interfaceName string) bool {
	// Check exclude list first
	for _, excluded := range n.excludeInterfaces {
		if excluded == interfaceName {
			return false
		}
	}

	// If include list is empty, monitor all (except excluded)
	if len(n.includeInterfaces) == 0 {
		return true
	}

	for _, included := range n.includeInterfaces {
		if included == interfaceName {
			return true
		}
	}

	return false
}
