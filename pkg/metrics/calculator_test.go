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
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

const oneMbpsBytes = 131072 // bytes per second that equal 1 Mbps

func TestCalculateBandwidthMbps(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		prev         CounterSnapshot
		current      CounterSnapshot
		wantUpload   float64
		wantDownload float64
	}{
		{
			name: "Normal traffic",
			prev: CounterSnapshot{BytesSent: 0, BytesRecv: 0, Timestamp: base},
			current: CounterSnapshot{
				BytesSent: 1024 * 1024, // 8 Mbit over 1s
				BytesRecv: 2 * 1024 * 1024,
				Timestamp: base.Add(1 * time.Second),
			},
			wantUpload:   8,
			wantDownload: 16,
		},
		{
			name:         "Zero timestamp (First run)",
			prev:         CounterSnapshot{},
			current:      CounterSnapshot{BytesSent: 1000, Timestamp: base},
			wantUpload:   0,
			wantDownload: 0,
		},
		{
			name:         "Same timestamp",
			prev:         CounterSnapshot{BytesSent: 10, Timestamp: base},
			current:      CounterSnapshot{BytesSent: 5000, Timestamp: base},
			wantUpload:   0,
			wantDownload: 0,
		},
		{
			name:         "Counter reset clamps to zero",
			prev:         CounterSnapshot{BytesSent: 5000, BytesRecv: 100, Timestamp: base},
			current:      CounterSnapshot{BytesSent: 10, BytesRecv: 100 + oneMbpsBytes*2, Timestamp: base.Add(2 * time.Second)},
			wantUpload:   0,
			wantDownload: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, down := CalculateBandwidthMbps(tt.prev, tt.current)
			if math.Abs(up-tt.wantUpload) > 0.00001 {
				t.Errorf("upload = %v, want %v", up, tt.wantUpload)
			}
			if math.Abs(down-tt.wantDownload) > 0.00001 {
				t.Errorf("download = %v, want %v", down, tt.wantDownload)
			}
		})
	}
}

func TestBandwidthCalculator_Compute(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewBandwidthCalculator()

	// First snapshot only stores the baseline
	up, down := c.Compute(CounterSnapshot{Timestamp: base})
	if up != 0 || down != 0 {
		t.Errorf("first Compute() = (%v, %v), want (0, 0)", up, down)
	}
	if len(c.History()) != 0 {
		t.Errorf("history after baseline = %d, want 0", len(c.History()))
	}

	up, down = c.Compute(CounterSnapshot{
		BytesSent: oneMbpsBytes * 2,
		BytesRecv: oneMbpsBytes * 4,
		Timestamp: base.Add(2 * time.Second),
	})
	if math.Abs(up-1) > 0.00001 || math.Abs(down-2) > 0.00001 {
		t.Errorf("Compute() = (%v, %v), want (1, 2)", up, down)
	}

	// Non-advancing timestamp leaves baseline and history alone
	up, down = c.Compute(CounterSnapshot{BytesSent: 1 << 40, Timestamp: base.Add(2 * time.Second)})
	if up != 0 || down != 0 {
		t.Errorf("stale Compute() = (%v, %v), want (0, 0)", up, down)
	}
	if got := len(c.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}

	// Next reading is still measured against the last valid baseline
	up, _ = c.Compute(CounterSnapshot{
		BytesSent: oneMbpsBytes * 4,
		BytesRecv: oneMbpsBytes * 4,
		Timestamp: base.Add(4 * time.Second),
	})
	if math.Abs(up-1) > 0.00001 {
		t.Errorf("Compute() after stale = %v, want 1", up)
	}
}

func TestBandwidthCalculator_CounterReset(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewBandwidthCalculator()
	c.Compute(CounterSnapshot{BytesSent: 1 << 30, BytesRecv: 1 << 30, Timestamp: base})

	up, down := c.Compute(CounterSnapshot{BytesSent: 100, BytesRecv: 100, Timestamp: base.Add(time.Second)})
	if up != 0 || down != 0 {
		t.Errorf("Compute() after reset = (%v, %v), want (0, 0)", up, down)
	}

	// Baseline advanced to the reset values
	up, _ = c.Compute(CounterSnapshot{BytesSent: 100 + oneMbpsBytes, BytesRecv: 100, Timestamp: base.Add(2 * time.Second)})
	if math.Abs(up-1) > 0.00001 {
		t.Errorf("Compute() after new baseline = %v, want 1", up)
	}
}

func TestBandwidthCalculator_HistoryBounded(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewBandwidthCalculator()

	for i := 0; i <= HistorySize+50; i++ {
		c.Compute(CounterSnapshot{
			BytesSent: uint64(i) * oneMbpsBytes,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	history := c.History()
	if len(history) != HistorySize {
		t.Fatalf("history length = %d, want %d", len(history), HistorySize)
	}
	want := base.Add(time.Duration(HistorySize+50) * time.Second)
	if !history[len(history)-1].Timestamp.Equal(want) {
		t.Errorf("newest reading = %v, want %v", history[len(history)-1].Timestamp, want)
	}
	for i, r := range history {
		if r.UploadMbps < 0 || r.DownloadMbps < 0 {
			t.Errorf("history[%d] has negative rate: %+v", i, r)
		}
	}
}

func TestBandwidthCalculator_DetectAnomalies(t *testing.T) {
	t.Run("Threshold without history", func(t *testing.T) {
		c := NewBandwidthCalculator()
		got := c.DetectAnomalies(150, 50, 100)
		if len(got) != 1 {
			t.Fatalf("DetectAnomalies() = %v, want 1 entry", got)
		}
		want := "High upload traffic: 150.00 Mbps (threshold: 100 Mbps)"
		if got[0] != want {
			t.Errorf("DetectAnomalies()[0] = %q, want %q", got[0], want)
		}
	})

	t.Run("Both directions over threshold", func(t *testing.T) {
		c := NewBandwidthCalculator()
		got := c.DetectAnomalies(101, 200, 100)
		if len(got) != 2 {
			t.Fatalf("DetectAnomalies() = %v, want 2 entries", got)
		}
		if !strings.HasPrefix(got[1], "High download traffic") {
			t.Errorf("second entry = %q, want download description", got[1])
		}
	})

	t.Run("At threshold is not a breach", func(t *testing.T) {
		c := NewBandwidthCalculator()
		if got := c.DetectAnomalies(100, 100, 100); len(got) != 0 {
			t.Errorf("DetectAnomalies() = %v, want none", got)
		}
	})

	t.Run("Upload spike", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		c := NewBandwidthCalculator()
		var sent uint64
		c.Compute(CounterSnapshot{Timestamp: base})
		for i := 1; i <= 9; i++ {
			sent += oneMbpsBytes
			c.Compute(CounterSnapshot{BytesSent: sent, Timestamp: base.Add(time.Duration(i) * time.Second)})
		}
		sent += 100 * oneMbpsBytes
		up, down := c.Compute(CounterSnapshot{BytesSent: sent, Timestamp: base.Add(10 * time.Second)})

		got := c.DetectAnomalies(up, down, 1000)
		if len(got) != 1 {
			t.Fatalf("DetectAnomalies() = %v, want 1 entry", got)
		}
		// Window includes the current reading: (9*1 + 100) / 10
		want := "Upload spike detected: 100.00 Mbps (avg: 10.90 Mbps)"
		if got[0] != want {
			t.Errorf("DetectAnomalies()[0] = %q, want %q", got[0], want)
		}
	})

	t.Run("Spike needs full window", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		c := NewBandwidthCalculator()
		c.Compute(CounterSnapshot{Timestamp: base})
		c.Compute(CounterSnapshot{BytesSent: 500 * oneMbpsBytes, Timestamp: base.Add(time.Second)})
		if got := c.DetectAnomalies(500, 0, 1000); len(got) != 0 {
			t.Errorf("DetectAnomalies() = %v, want none", got)
		}
	})

	t.Run("Spike below floor", func(t *testing.T) {
		base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		c := NewBandwidthCalculator()
		c.Compute(CounterSnapshot{Timestamp: base})
		for i := 1; i <= 9; i++ {
			c.Compute(CounterSnapshot{Timestamp: base.Add(time.Duration(i) * time.Second)})
		}
		c.Compute(CounterSnapshot{BytesRecv: 10 * oneMbpsBytes, Timestamp: base.Add(10 * time.Second)})
		if got := c.DetectAnomalies(0, 10, 1000); len(got) != 0 {
			t.Errorf("DetectAnomalies() = %v, want none", got)
		}
	})

	tests := []struct {
		name      string
		avgMbps   uint64
		upload    float64
		download  float64
		wantSpike []string
	}{
		{"Below factor and floor", 2, 7, 0, nil},
		{"Above factor and floor", 2, 15, 0, []string{"Upload spike detected: 15.00 Mbps (avg: 2.00 Mbps)"}},
		{"Above floor within factor", 10, 25, 30, nil},
		{"Above floor over factor", 10, 31, 0, []string{"Upload spike detected: 31.00 Mbps (avg: 10.00 Mbps)"}},
		{"Download only", 10, 0, 45, []string{"Download spike detected: 45.00 Mbps (avg: 10.00 Mbps)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := filledCalculator(10, tt.avgMbps)
			got := c.DetectAnomalies(tt.upload, tt.download, 1000)
			if len(got) != len(tt.wantSpike) {
				t.Fatalf("DetectAnomalies(%v, %v) = %v, want %v", tt.upload, tt.download, got, tt.wantSpike)
			}
			for i := range got {
				if got[i] != tt.wantSpike[i] {
					t.Errorf("DetectAnomalies()[%d] = %q, want %q", i, got[i], tt.wantSpike[i])
				}
			}
		})
	}
}

// filledCalculator returns a calculator holding n readings of mbps in both directions.
func filledCalculator(n int, mbps uint64) *BandwidthCalculator {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewBandwidthCalculator()
	var total uint64
	c.Compute(CounterSnapshot{Timestamp: base})
	for i := 1; i <= n; i++ {
		total += mbps * oneMbpsBytes
		c.Compute(CounterSnapshot{BytesSent: total, BytesRecv: total, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	return c
}

func TestBandwidthCalculator_ConcurrentAccess(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewBandwidthCalculator()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c.Compute(CounterSnapshot{BytesSent: uint64(i) * 1000, Timestamp: base.Add(time.Duration(i) * time.Second)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = c.History()
			_ = c.DetectAnomalies(1, 1, 100)
		}
	}()
	wg.Wait()

	if got := len(c.History()); got > HistorySize {
		t.Errorf("history length = %d, want <= %d", got, HistorySize)
	}
}
