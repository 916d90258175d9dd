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

package metrics

import (
	"fmt"
	"sync"
)

// Bandwidth history and spike detection parameters.
const (
	HistorySize    = 100
	SpikeWindow    = 10
	SpikeFactor    = 3.0
	SpikeFloorMbps = 10.0
)

const bitsPerMegabit = 1024 * 1024

// CalculateBandwidthMbps converts two counter snapshots into upload and download rates.
// Formula: (Δbytes × 8) / 1048576 / Δt
// A counter that went backwards (interface reset, wrap) yields 0 for that direction.
func CalculateBandwidthMbps(prev, current CounterSnapshot) (upload, download float64) {
	if prev.Timestamp.IsZero() {
		return 0, 0
	}

	deltaTime := current.Timestamp.Sub(prev.Timestamp).Seconds()
	if deltaTime <= 0 {
		return 0, 0
	}

	return counterRate(prev.BytesSent, current.BytesSent, deltaTime),
		counterRate(prev.BytesRecv, current.BytesRecv, deltaTime)
}

func counterRate(prev, current uint64, seconds float64) float64 {
	if current < prev {
		return 0
	}
	return float64(current-prev) * 8 / bitsPerMegabit / seconds
}

// BandwidthCalculator turns successive counter snapshots into readings and keeps
// a bounded history of them for spike detection.
type BandwidthCalculator struct {
	mu      sync.Mutex
	prev    CounterSnapshot
	hasPrev bool
	history []BandwidthReading
}

// NewBandwidthCalculator creates a calculator with no baseline.
func NewBandwidthCalculator() *BandwidthCalculator {
	return &BandwidthCalculator{
		history: make([]BandwidthReading, 0, HistorySize),
	}
}

// Compute returns the rates since the previous snapshot.
// The first call only stores the baseline. A snapshot that is not newer than the
// baseline returns zeros and leaves the baseline and history untouched.
func (c *BandwidthCalculator) Compute(snap CounterSnapshot) (upload, download float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPrev {
		c.prev = snap
		c.hasPrev = true
		return 0, 0
	}

	if !snap.Timestamp.After(c.prev.Timestamp) {
		return 0, 0
	}

	upload, download = CalculateBandwidthMbps(c.prev, snap)
	c.prev = snap

	c.history = append(c.history, BandwidthReading{
		UploadMbps:   upload,
		DownloadMbps: download,
		Timestamp:    snap.Timestamp,
	})
	if len(c.history) > HistorySize {
		c.history = c.history[len(c.history)-HistorySize:]
	}

	return upload, download
}

// History returns a copy of the retained readings, oldest first.
func (c *BandwidthCalculator) History() []BandwidthReading {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]BandwidthReading, len(c.history))
	copy(out, c.history)
	return out
}

// DetectAnomalies describes threshold breaches and sudden spikes for a reading.
// Spike checks need at least SpikeWindow readings of history; the window
// includes the reading being evaluated when Compute has already recorded it.
func (c *BandwidthCalculator) DetectAnomalies(upload, download, thresholdMbps float64) []string {
	var anomalies []string

	if upload > thresholdMbps {
		anomalies = append(anomalies, fmt.Sprintf("High upload traffic: %.2f Mbps (threshold: %g Mbps)", upload, thresholdMbps))
	}
	if download > thresholdMbps {
		anomalies = append(anomalies, fmt.Sprintf("High download traffic: %.2f Mbps (threshold: %g Mbps)", download, thresholdMbps))
	}

	c.mu.Lock()
	if len(c.history) < SpikeWindow {
		c.mu.Unlock()
		return anomalies
	}
	recent := c.history[len(c.history)-SpikeWindow:]
	var sumUp, sumDown float64
	for _, r := range recent {
		sumUp += r.UploadMbps
		sumDown += r.DownloadMbps
	}
	c.mu.Unlock()

	avgUp := sumUp / SpikeWindow
	avgDown := sumDown / SpikeWindow

	if upload > avgUp*SpikeFactor && upload > SpikeFloorMbps {
		anomalies = append(anomalies, fmt.Sprintf("Upload spike detected: %.2f Mbps (avg: %.2f Mbps)", upload, avgUp))
	}
	if download > avgDown*SpikeFactor && download > SpikeFloorMbps {
		anomalies = append(anomalies, fmt.Sprintf("Download spike detected: %.2f Mbps (avg: %.2f Mbps)", download, avgDown))
	}

	return anomalies
}
