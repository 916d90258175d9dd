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

// Package report aggregates stored history into a human-readable analysis.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phuonguno98/netsentinel/internal/alert"
	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Stat is the running average and peak of one series.
type Stat struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	sum   float64
}

func (s *Stat) add(v float64) {
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.sum += v
	s.Avg = s.sum / float64(s.Count)
}

// NetworkReport summarizes bandwidth samples.
type NetworkReport struct {
	Samples   int       `json:"samples"`
	Upload    Stat      `json:"upload_mbps"`
	Download  Stat      `json:"download_mbps"`
	Anomalies int       `json:"anomalies"`
	PeakAt    time.Time `json:"peak_at"`
}

// SystemReport summarizes resource samples.
type SystemReport struct {
	Samples int  `json:"samples"`
	CPU     Stat `json:"cpu_percent"`
	Memory  Stat `json:"memory_percent"`
	Disk    Stat `json:"disk_percent"`
}

// DeviceReport summarizes probes of one host.
type DeviceReport struct {
	Host         string  `json:"host"`
	Probes       int     `json:"probes"`
	Reachable    int     `json:"reachable"`
	Availability float64 `json:"availability_percent"`
	RTT          Stat    `json:"rtt_ms"`
}

// Report is the analysis of one export window.
type Report struct {
	Hours       float64        `json:"hours"`
	GeneratedAt time.Time      `json:"generated_at"`
	Network     NetworkReport  `json:"network"`
	System      SystemReport   `json:"system"`
	Devices     []DeviceReport `json:"devices"`
	Alerts      alert.Summary  `json:"alerts"`
}

// Analyze aggregates every dataset of the bundle.
func Analyze(b *storage.ExportBundle) Report {
	r := Report{
		Hours:       b.ExportPeriodHours,
		GeneratedAt: b.ExportTimestamp,
		Network:     analyzeNetwork(b.Network),
		System:      analyzeSystem(b.System),
		Devices:     analyzeDevices(b.Device),
		Alerts:      alert.Summarize(b.Alert, b.ExportTimestamp),
	}
	return r
}

func analyzeNetwork(samples []metrics.NetworkSample) NetworkReport {
	var n NetworkReport
	var peak float64
	for _, s := range samples {
		n.Samples++
		n.Upload.add(s.UploadMbps)
		n.Download.add(s.DownloadMbps)
		n.Anomalies += len(s.Anomalies)
		if total := s.UploadMbps + s.DownloadMbps; total > peak {
			peak = total
			n.PeakAt = s.Timestamp
		}
	}
	return n
}

func analyzeSystem(samples []metrics.SystemSample) SystemReport {
	var r SystemReport
	for _, s := range samples {
		r.Samples++
		r.CPU.add(s.CPUPercent)
		r.Memory.add(s.MemoryPercent)
		r.Disk.add(s.DiskPercent)
	}
	return r
}

func analyzeDevices(statuses []metrics.DeviceStatus) []DeviceReport {
	byHost := make(map[string]*DeviceReport)
	for _, s := range statuses {
		d, ok := byHost[s.IPAddress]
		if !ok {
			d = &DeviceReport{Host: s.IPAddress}
			byHost[s.IPAddress] = d
		}
		d.Probes++
		if s.IsReachable {
			d.Reachable++
			if s.ResponseTimeMs != nil {
				d.RTT.add(*s.ResponseTimeMs)
			}
		}
	}

	out := make([]DeviceReport, 0, len(byHost))
	for _, d := range byHost {
		d.Availability = float64(d.Reachable) / float64(d.Probes) * 100
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Host < out[j].Host
	})
	return out
}

// Format renders the report as plain-text tables.
func (r Report) Format() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\nNetwork Analysis (last %g hours)\n", r.Hours))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-20s %12s %12s %12s\n", "BANDWIDTH", "AVG", "MAX", "SAMPLES"))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-20s %12.2f %12.2f %12d\n", "Upload (Mbps)", r.Network.Upload.Avg, r.Network.Upload.Max, r.Network.Samples))
	sb.WriteString(fmt.Sprintf("%-20s %12.2f %12.2f %12d\n", "Download (Mbps)", r.Network.Download.Avg, r.Network.Download.Max, r.Network.Samples))
	sb.WriteString(fmt.Sprintf("Anomalies detected: %d\n", r.Network.Anomalies))
	if !r.Network.PeakAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Peak traffic at: %s\n", r.Network.PeakAt.Format("2006-01-02 15:04:05")))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-20s %12s %12s %12s\n", "RESOURCE", "AVG", "MAX", "SAMPLES"))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, row := range []struct {
		name string
		s    Stat
	}{
		{"CPU (%)", r.System.CPU},
		{"Memory (%)", r.System.Memory},
		{"Disk (%)", r.System.Disk},
	} {
		sb.WriteString(fmt.Sprintf("%-20s %12.2f %12.2f %12d\n", row.name, row.s.Avg, row.s.Max, r.System.Samples))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-20s %12s %12s %12s\n", "DEVICE", "AVAILABLE", "AVG RTT", "PROBES"))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if len(r.Devices) == 0 {
		sb.WriteString("No device probes recorded.\n")
	}
	for _, d := range r.Devices {
		rtt := "N/A"
		if d.RTT.Count > 0 {
			rtt = fmt.Sprintf("%.1f ms", d.RTT.Avg)
		}
		sb.WriteString(fmt.Sprintf("%-20s %11.1f%% %12s %12d\n", d.Host, d.Availability, rtt, d.Probes))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Alerts: %d total, %d in the last 24 hours\n", r.Alerts.TotalAlerts, len(r.Alerts.Recent)))
	for _, sev := range metrics.Severities {
		if n := r.Alerts.BySeverity[sev]; n > 0 {
			sb.WriteString(fmt.Sprintf("  %-10s %d\n", strings.ToUpper(string(sev)), n))
		}
	}
	types := make([]string, 0, len(r.Alerts.ByType))
	for t := range r.Alerts.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		sb.WriteString(fmt.Sprintf("  %-30s %d\n", t, r.Alerts.ByType[t]))
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return sb.String()
}
