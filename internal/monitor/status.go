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

package monitor

import (
	"log/slog"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// StatusWindow is how many recent bandwidth readings the status report averages.
const StatusWindow = 10

// Status is a point-in-time report of the running monitor.
type Status struct {
	Timestamp         time.Time                `json:"timestamp"`
	Loops             map[string]LoopState     `json:"loops"`
	AvgUploadMbps     float64                  `json:"avg_upload_mbps"`
	AvgDownloadMbps   float64                  `json:"avg_download_mbps"`
	BandwidthReadings int                      `json:"bandwidth_readings"`
	TotalAlerts       int                      `json:"total_alerts"`
	RecentAlerts      int                      `json:"recent_alerts"`
	AlertsBySeverity  map[metrics.Severity]int `json:"alerts_by_severity"`
}

// Status builds a report from the loop states, the latest bandwidth
// readings and the in-memory alert log.
func (m *Monitor) Status() Status {
	st := Status{
		Timestamp: time.Now(),
		Loops:     m.States(),
	}

	history := m.calc.History()
	if len(history) > StatusWindow {
		history = history[len(history)-StatusWindow:]
	}
	st.BandwidthReadings = len(history)
	if len(history) > 0 {
		var up, down float64
		for _, r := range history {
			up += r.UploadMbps
			down += r.DownloadMbps
		}
		st.AvgUploadMbps = up / float64(len(history))
		st.AvgDownloadMbps = down / float64(len(history))
	}

	summary := m.alerts.Summary()
	st.TotalAlerts = summary.TotalAlerts
	st.RecentAlerts = len(summary.Recent)
	st.AlertsBySeverity = summary.BySeverity

	return st
}

// LogStatus writes the status report at info level.
func LogStatus(logger *slog.Logger, st Status) {
	logger.Info("Status report",
		"network", st.Loops[LoopNetwork],
		"system", st.Loops[LoopSystem],
		"device", st.Loops[LoopDevice],
		"avg_upload_mbps", st.AvgUploadMbps,
		"avg_download_mbps", st.AvgDownloadMbps,
		"total_alerts", st.TotalAlerts,
		"recent_alerts", st.RecentAlerts,
	)
}
