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

package alert

import (
	"fmt"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Alert types. Cooldown is keyed by these names.
const (
	TypeHighCPU           = "High CPU Usage"
	TypeHighMemory        = "High Memory Usage"
	TypeHighDisk          = "High Disk Usage"
	TypeHighUpload        = "High Upload Bandwidth"
	TypeHighDownload      = "High Download Bandwidth"
	TypeTrafficAnomaly    = "Network Traffic Anomaly"
	TypeDeviceUnreachable = "Device Unreachable"
	TypeHighLatency       = "High Latency"
)

// HighLatencyMs is the round-trip time above which a reachable device alerts.
const HighLatencyMs = 1000.0

// ProcessSystem classifies a resource sample.
func (m *Manager) ProcessSystem(s metrics.SystemSample) []metrics.Alert {
	t := m.thresholds
	var alerts []metrics.Alert

	if s.CPUPercent > t.CPU {
		sev := metrics.SeverityMedium
		if s.CPUPercent > 90 {
			sev = metrics.SeverityHigh
		}
		alerts = append(alerts, m.Create(TypeHighCPU,
			fmt.Sprintf("CPU usage is %.1f%% (threshold: %g%%)", s.CPUPercent, t.CPU), sev))
	}

	if s.MemoryPercent > t.Memory {
		sev := metrics.SeverityMedium
		if s.MemoryPercent > 95 {
			sev = metrics.SeverityHigh
		}
		alerts = append(alerts, m.Create(TypeHighMemory,
			fmt.Sprintf("Memory usage is %.1f%% (threshold: %g%%)", s.MemoryPercent, t.Memory), sev))
	}

	if s.DiskPercent > t.Disk {
		sev := metrics.SeverityHigh
		if s.DiskPercent > 95 {
			sev = metrics.SeverityCritical
		}
		alerts = append(alerts, m.Create(TypeHighDisk,
			fmt.Sprintf("Disk usage is %.1f%% (threshold: %g%%)", s.DiskPercent, t.Disk), sev))
	}

	return alerts
}

// ProcessNetwork classifies a bandwidth reading and the anomalies detected for it.
func (m *Manager) ProcessNetwork(upload, download float64, anomalies []string) []metrics.Alert {
	threshold := m.thresholds.BandwidthMbps
	var alerts []metrics.Alert

	if upload > threshold {
		alerts = append(alerts, m.Create(TypeHighUpload,
			fmt.Sprintf("Upload bandwidth is %.2f Mbps (threshold: %g Mbps)", upload, threshold),
			bandwidthSeverity(upload, threshold)))
	}

	if download > threshold {
		alerts = append(alerts, m.Create(TypeHighDownload,
			fmt.Sprintf("Download bandwidth is %.2f Mbps (threshold: %g Mbps)", download, threshold),
			bandwidthSeverity(download, threshold)))
	}

	for _, anomaly := range anomalies {
		alerts = append(alerts, m.Create(TypeTrafficAnomaly, anomaly, metrics.SeverityMedium))
	}

	return alerts
}

func bandwidthSeverity(rate, threshold float64) metrics.Severity {
	if rate > threshold*1.5 {
		return metrics.SeverityHigh
	}
	return metrics.SeverityMedium
}

// ProcessDevices classifies probe results. Unreachable devices never get a latency check.
func (m *Manager) ProcessDevices(statuses []metrics.DeviceStatus) []metrics.Alert {
	var alerts []metrics.Alert

	for _, st := range statuses {
		if !st.IsReachable {
			alerts = append(alerts, m.Create(TypeDeviceUnreachable,
				fmt.Sprintf("Device %s is not responding to ping", st.IPAddress), metrics.SeverityHigh))
			continue
		}
		if st.ResponseTimeMs != nil && *st.ResponseTimeMs > HighLatencyMs {
			alerts = append(alerts, m.Create(TypeHighLatency,
				fmt.Sprintf("Device %s has high latency: %.1fms", st.IPAddress, *st.ResponseTimeMs), metrics.SeverityMedium))
		}
	}

	return alerts
}
