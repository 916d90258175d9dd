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
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// RecentWindow is how far back Summary looks for recent alerts.
const RecentWindow = 24 * time.Hour

// Summary aggregates the in-memory alert log.
type Summary struct {
	TotalAlerts int                      `json:"total_alerts"`
	BySeverity  map[metrics.Severity]int `json:"by_severity"`
	ByType      map[string]int           `json:"by_type"`
	Recent      []metrics.Alert          `json:"recent_alerts"`
}

// Summarize counts alerts by severity and type and selects those newer than
// RecentWindow relative to now.
func Summarize(alerts []metrics.Alert, now time.Time) Summary {
	s := Summary{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[metrics.Severity]int),
		ByType:      make(map[string]int),
		Recent:      []metrics.Alert{},
	}

	cutoff := now.Add(-RecentWindow)
	for _, a := range alerts {
		s.BySeverity[a.Severity]++
		s.ByType[a.AlertType]++
		if a.Timestamp.After(cutoff) {
			s.Recent = append(s.Recent, a)
		}
	}

	return s
}

// Summary aggregates the manager's active alert log.
func (m *Manager) Summary() Summary {
	return Summarize(m.Active(), m.now())
}
