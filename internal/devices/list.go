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

// Package devices inventories the host's network interfaces and mount points
// so monitoring filters and the disk path can be chosen accurately.
package devices

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
)

// Dependency injection points for testing
var (
	diskPartitions = disk.PartitionsWithContext
	diskUsage      = disk.UsageWithContext
	netInterfaces  = net.InterfacesWithContext
	netIOCounters  = net.IOCountersWithContext
)

// MountInfo describes a mount point usable as the monitored disk path.
type MountInfo struct {
	Device      string
	Mountpoint  string
	Filesystem  string
	Total       uint64
	UsedPercent float64
}

// InterfaceInfo describes a network interface and its cumulative traffic.
type InterfaceInfo struct {
	Name       string
	MacAddress string
	MTU        int
	Up         bool
	Loopback   bool
	Addresses  []string
	BytesSent  uint64
	BytesRecv  uint64
}

// ListMounts returns the physical mount points, one per device.
func ListMounts(ctx context.Context) ([]MountInfo, error) {
	partitions, err := diskPartitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk partitions: %w", err)
	}

	mounts := make([]MountInfo, 0)
	seen := make(map[string]bool)

	for _, partition := range partitions {
		// Skip duplicate devices
		if seen[partition.Device] {
			continue
		}
		seen[partition.Device] = true

		m := MountInfo{
			Device:     partition.Device,
			Mountpoint: partition.Mountpoint,
			Filesystem: partition.Fstype,
		}
		if usage, err := diskUsage(ctx, partition.Mountpoint); err == nil {
			m.Total = usage.Total
			m.UsedPercent = usage.UsedPercent
		}
		mounts = append(mounts, m)
	}

	sort.Slice(mounts, func(i, j int) bool {
		return mounts[i].Mountpoint < mounts[j].Mountpoint
	})

	return mounts, nil
}

// ListInterfaces returns every interface with its flags and traffic totals.
// Counter lookup failures leave the totals at zero.
func ListInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	interfaces, err := netInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	counters := make(map[string]net.IOCountersStat)
	if stats, err := netIOCounters(ctx, true); err == nil {
		for _, s := range stats {
			counters[s.Name] = s
		}
	}

	out := make([]InterfaceInfo, 0, len(interfaces))
	for _, iface := range interfaces {
		addresses := make([]string, 0, len(iface.Addrs))
		for _, addr := range iface.Addrs {
			addresses = append(addresses, addr.Addr)
		}

		info := InterfaceInfo{
			Name:       iface.Name,
			MacAddress: iface.HardwareAddr,
			MTU:        iface.MTU,
			Up:         slices.Contains(iface.Flags, "up"),
			Loopback:   slices.Contains(iface.Flags, "loopback"),
			Addresses:  addresses,
		}
		if c, ok := counters[iface.Name]; ok {
			info.BytesSent = c.BytesSent
			info.BytesRecv = c.BytesRecv
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// FormatMountsTable formats mount information as a table.
func FormatMountsTable(mounts []MountInfo) string {
	var sb strings.Builder

	sb.WriteString("\nMount Points:\n")
	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-25s %-25s %-10s %-10s %s\n", "MOUNTPOINT", "DEVICE", "FS", "SIZE", "USED"))
	sb.WriteString(strings.Repeat("-", 80))
	sb.WriteString("\n")

	for _, m := range mounts {
		sb.WriteString(fmt.Sprintf("%-25s %-25s %-10s %-10s %.1f%%\n",
			truncate(m.Mountpoint, 25),
			truncate(m.Device, 25),
			m.Filesystem,
			humanize.IBytes(m.Total),
			m.UsedPercent,
		))
	}

	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")

	return sb.String()
}

// FormatInterfacesTable formats interface information as a table.
func FormatInterfacesTable(interfaces []InterfaceInfo) string {
	var sb strings.Builder

	sb.WriteString("\nNetwork Interfaces:\n")
	sb.WriteString(strings.Repeat("=", 100))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-20s %-6s %-6s %-17s %-12s %-12s %s\n",
		"INTERFACE", "STATE", "MTU", "MAC ADDRESS", "SENT", "RECEIVED", "IP ADDRESSES"))
	sb.WriteString(strings.Repeat("-", 100))
	sb.WriteString("\n")

	for _, n := range interfaces {
		mac := n.MacAddress
		if mac == "" {
			mac = "N/A"
		}
		state := "down"
		if n.Up {
			state = "up"
		}
		name := n.Name
		if n.Loopback {
			name += " (lo)"
		}

		// Show first IP address on same line
		firstIP := "N/A"
		if len(n.Addresses) > 0 {
			firstIP = n.Addresses[0]
		}

		sb.WriteString(fmt.Sprintf("%-20s %-6s %-6d %-17s %-12s %-12s %s\n",
			truncate(name, 20),
			state,
			n.MTU,
			mac,
			humanize.IBytes(n.BytesSent),
			humanize.IBytes(n.BytesRecv),
			firstIP,
		))

		// Show additional IPs on separate lines
		for i := 1; i < len(n.Addresses); i++ {
			sb.WriteString(fmt.Sprintf("%-83s %s\n", "", n.Addresses[i]))
		}
	}

	sb.WriteString(strings.Repeat("=", 100))
	sb.WriteString("\n")

	return sb.String()
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
