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

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

func ptr(v float64) *float64 { return &v }

func testBundle() *storage.ExportBundle {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &storage.ExportBundle{
		Network: []metrics.NetworkSample{
			{Timestamp: now.Add(-3 * time.Minute), UploadMbps: 2, DownloadMbps: 10},
			{Timestamp: now.Add(-2 * time.Minute), UploadMbps: 4, DownloadMbps: 150, Anomalies: []string{"a", "b"}},
			{Timestamp: now.Add(-1 * time.Minute), UploadMbps: 6, DownloadMbps: 20},
		},
		System: []metrics.SystemSample{
			{Timestamp: now, CPUPercent: 20, MemoryPercent: 50, DiskPercent: 70},
			{Timestamp: now, CPUPercent: 90, MemoryPercent: 60, DiskPercent: 70},
		},
		Device: []metrics.DeviceStatus{
			{IPAddress: "8.8.8.8", IsReachable: true, ResponseTimeMs: ptr(10)},
			{IPAddress: "8.8.8.8", IsReachable: true, ResponseTimeMs: ptr(30)},
			{IPAddress: "1.1.1.1", IsReachable: true, ResponseTimeMs: ptr(5)},
			{IPAddress: "1.1.1.1"},
			{IPAddress: "10.0.0.9"},
		},
		Alert: []metrics.Alert{
			{AlertType: "High CPU Usage", Severity: metrics.SeverityHigh, Timestamp: now.Add(-time.Hour)},
			{AlertType: "Device Unreachable", Severity: metrics.SeverityHigh, Timestamp: now.Add(-48 * time.Hour)},
		},
		ExportTimestamp:   now,
		ExportPeriodHours: 72,
	}
}

func TestAnalyze(t *testing.T) {
	b := testBundle()
	r := Analyze(b)

	if r.Network.Samples != 3 || r.Network.Anomalies != 2 {
		t.Errorf("network = %+v", r.Network)
	}
	if r.Network.Upload.Avg != 4 || r.Network.Upload.Max != 6 || r.Network.Download.Max != 150 {
		t.Errorf("bandwidth stats = %+v / %+v", r.Network.Upload, r.Network.Download)
	}
	if !r.Network.PeakAt.Equal(b.Network[1].Timestamp) {
		t.Errorf("PeakAt = %v, want %v", r.Network.PeakAt, b.Network[1].Timestamp)
	}

	if r.System.CPU.Avg != 55 || r.System.CPU.Max != 90 || r.System.Disk.Avg != 70 {
		t.Errorf("system = %+v", r.System)
	}

	wantDevices := []struct {
		host   string
		avail  float64
		rttAvg float64
		rttN   int
	}{
		{"1.1.1.1", 50, 5, 1},
		{"10.0.0.9", 0, 0, 0},
		{"8.8.8.8", 100, 20, 2},
	}
	if len(r.Devices) != len(wantDevices) {
		t.Fatalf("devices = %+v", r.Devices)
	}
	for i, want := range wantDevices {
		d := r.Devices[i]
		if d.Host != want.host || d.Availability != want.avail || d.RTT.Avg != want.rttAvg || d.RTT.Count != want.rttN {
			t.Errorf("devices[%d] = %+v, want %+v", i, d, want)
		}
	}

	if r.Alerts.TotalAlerts != 2 || len(r.Alerts.Recent) != 1 {
		t.Errorf("alerts = %+v", r.Alerts)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(&storage.ExportBundle{ExportPeriodHours: 1})
	if r.Network.Samples != 0 || r.System.CPU.Count != 0 || len(r.Devices) != 0 {
		t.Errorf("report = %+v", r)
	}
	if out := r.Format(); !strings.Contains(out, "No device probes recorded.") {
		t.Errorf("Format() = %s", out)
	}
}

func TestReport_Format(t *testing.T) {
	out := Analyze(testBundle()).Format()
	for _, want := range []string{
		"last 72 hours",
		"Anomalies detected: 2",
		"8.8.8.8",
		"20.0 ms",
		"N/A",
		"HIGH       2",
		"High CPU Usage",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
