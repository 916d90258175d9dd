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

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

func openTestStore(t *testing.T, backendName string, maxRecords int) *Store {
	t.Helper()
	s, err := Open(Options{
		Dir:        t.TempDir(),
		Backend:    backendName,
		MaxRecords: maxRecords,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open(%s) error = %v", backendName, err)
	}
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("Close() error: %v", err)
		}
	})
	return s
}

var backends = []string{BackendJSON, BackendSQLite}

func TestStore_QueryWindow(t *testing.T) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			s := openTestStore(t, b, 0)
			ctx := context.Background()

			offsets := []time.Duration{-2 * time.Hour, -time.Hour, -30 * time.Minute}
			for _, off := range offsets {
				err := s.AppendSystem(ctx, metrics.SystemSample{
					Timestamp:  testNow.Add(off),
					CPUPercent: float64(-off / time.Minute),
				})
				if err != nil {
					t.Fatalf("AppendSystem() error = %v", err)
				}
			}

			got, err := s.SystemHistory(ctx, time.Hour)
			if err != nil {
				t.Fatalf("SystemHistory() error = %v", err)
			}
			// Boundary record at exactly now-1h is included
			if len(got) != 2 {
				t.Fatalf("SystemHistory() count = %d, want 2", len(got))
			}
			if got[0].CPUPercent != 60 || got[1].CPUPercent != 30 {
				t.Errorf("SystemHistory() order = [%v %v], want [60 30]", got[0].CPUPercent, got[1].CPUPercent)
			}
		})
	}
}

func TestStore_Retention(t *testing.T) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			s := openTestStore(t, b, 5)
			ctx := context.Background()

			for i := 0; i < 8; i++ {
				err := s.AppendNetwork(ctx, metrics.NetworkSample{
					Timestamp:  testNow.Add(-time.Duration(8-i) * time.Minute),
					UploadMbps: float64(i),
				})
				if err != nil {
					t.Fatalf("AppendNetwork() error = %v", err)
				}
			}

			got, err := s.NetworkHistory(ctx, 24*time.Hour)
			if err != nil {
				t.Fatalf("NetworkHistory() error = %v", err)
			}
			if len(got) != 5 {
				t.Fatalf("NetworkHistory() count = %d, want 5", len(got))
			}
			if got[0].UploadMbps != 3 || got[4].UploadMbps != 7 {
				t.Errorf("kept range = [%v..%v], want [3..7]", got[0].UploadMbps, got[4].UploadMbps)
			}
			if got[0].Anomalies == nil {
				t.Error("Anomalies should decode as an empty list, got nil")
			}
		})
	}
}

func TestStore_RetentionDefaultCap(t *testing.T) {
	const total = DefaultMaxRecords + 50

	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			s := openTestStore(t, b, 0)
			ctx := context.Background()

			// Newest first so insertion order differs from timestamp order.
			alerts := make([]metrics.Alert, total)
			for i := range alerts {
				alerts[i] = metrics.Alert{
					ID:        fmt.Sprintf("a-%d", i),
					AlertType: "High CPU Usage",
					Severity:  metrics.SeverityMedium,
					Timestamp: testNow.Add(-time.Duration(i) * time.Second),
				}
			}
			if err := s.AppendAlerts(ctx, alerts); err != nil {
				t.Fatalf("AppendAlerts() error = %v", err)
			}

			got, err := s.AlertHistory(ctx, 24*time.Hour)
			if err != nil {
				t.Fatalf("AlertHistory() error = %v", err)
			}
			if len(got) != DefaultMaxRecords {
				t.Fatalf("AlertHistory() count = %d, want %d", len(got), DefaultMaxRecords)
			}
			if got[0].ID != fmt.Sprintf("a-%d", DefaultMaxRecords-1) || got[len(got)-1].ID != "a-0" {
				t.Errorf("kept range = [%s..%s], want the %d newest", got[0].ID, got[len(got)-1].ID, DefaultMaxRecords)
			}
		})
	}
}

func TestStore_DeviceHostFilter(t *testing.T) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			s := openTestStore(t, b, 0)
			ctx := context.Background()
			rtt := 12.5

			err := s.AppendDevices(ctx, []metrics.DeviceStatus{
				{Timestamp: testNow.Add(-time.Minute), IPAddress: "8.8.8.8", IsReachable: true, ResponseTimeMs: &rtt},
				{Timestamp: testNow.Add(-time.Minute), IPAddress: "1.1.1.1", IsReachable: false},
			})
			if err != nil {
				t.Fatalf("AppendDevices() error = %v", err)
			}

			all, err := s.DeviceHistory(ctx, "", time.Hour)
			if err != nil {
				t.Fatalf("DeviceHistory() error = %v", err)
			}
			if len(all) != 2 {
				t.Errorf("DeviceHistory(all) count = %d, want 2", len(all))
			}

			one, err := s.DeviceHistory(ctx, "8.8.8.8", time.Hour)
			if err != nil {
				t.Fatalf("DeviceHistory() error = %v", err)
			}
			if len(one) != 1 || one[0].ResponseTimeMs == nil || *one[0].ResponseTimeMs != 12.5 {
				t.Errorf("DeviceHistory(8.8.8.8) = %+v", one)
			}

			down, _ := s.DeviceHistory(ctx, "1.1.1.1", time.Hour)
			if len(down) != 1 || down[0].ResponseTimeMs != nil {
				t.Errorf("unreachable device should have nil response time, got %+v", down)
			}
		})
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			s := openTestStore(t, b, 0)
			ctx := context.Background()

			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						a := metrics.Alert{
							ID:        fmt.Sprintf("%d-%d", w, i),
							AlertType: "High CPU Usage",
							Severity:  metrics.SeverityMedium,
							Timestamp: testNow.Add(-time.Duration(i) * time.Second),
						}
						if err := s.AppendAlerts(ctx, []metrics.Alert{a}); err != nil {
							t.Errorf("AppendAlerts() error = %v", err)
						}
					}
				}(w)
			}
			wg.Wait()

			got, err := s.AlertHistory(ctx, time.Hour)
			if err != nil {
				t.Fatalf("AlertHistory() error = %v", err)
			}
			if len(got) != 100 {
				t.Errorf("AlertHistory() count = %d, want 100 (no lost updates)", len(got))
			}
		})
	}
}

func TestStore_MalformedRecordsSkipped(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"timestamp": "2026-03-01T11:30:00.000000", "cpu_percent": 10},
		{"timestamp": "not a time", "cpu_percent": 20},
		{"cpu_percent": 30},
		{"timestamp": "` + testNow.Add(-10*time.Minute).Format(time.RFC3339Nano) + `", "cpu_percent": 40},
		"garbage"
	]`
	if err := os.WriteFile(filepath.Join(dir, DatasetFile(DatasetSystem)), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(Options{Dir: dir, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.now = func() time.Time { return testNow }

	got, err := s.SystemHistory(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("SystemHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SystemHistory() count = %d, want 2", len(got))
	}
	if got[0].CPUPercent != 10 || got[1].CPUPercent != 40 {
		t.Errorf("SystemHistory() = %+v", got)
	}
}

func TestStore_RetentionDropsMalformedFirst(t *testing.T) {
	dir := t.TempDir()
	content := `[{"timestamp": "bad", "cpu_percent": 1}]`
	if err := os.WriteFile(filepath.Join(dir, DatasetFile(DatasetSystem)), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(Options{Dir: dir, MaxRecords: 1, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.AppendSystem(context.Background(), metrics.SystemSample{Timestamp: testNow, CPUPercent: 2}); err != nil {
		t.Fatalf("AppendSystem() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DatasetFile(DatasetSystem)))
	if err != nil {
		t.Fatal(err)
	}
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		t.Fatalf("dataset file is not a JSON array: %v", err)
	}
	if len(raws) != 1 || raws[0]["cpu_percent"] != float64(2) {
		t.Errorf("file after trim = %v, want only the new record", raws)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DatasetFile(DatasetNetwork))
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(Options{Dir: dir, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.AppendNetwork(context.Background(), metrics.NetworkSample{Timestamp: testNow}); err == nil {
		t.Error("AppendNetwork() on corrupt file: expected error, got nil")
	}
	if _, err := s.NetworkHistory(context.Background(), time.Hour); err == nil {
		t.Error("NetworkHistory() on corrupt file: expected error, got nil")
	}

	// Original content must survive the failed append
	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Errorf("corrupt file was overwritten: %q", data)
	}
}

func TestStore_Export(t *testing.T) {
	s := openTestStore(t, BackendJSON, 0)
	ctx := context.Background()

	_ = s.AppendNetwork(ctx, metrics.NetworkSample{Timestamp: testNow.Add(-time.Hour), Anomalies: []string{"spike"}})
	_ = s.AppendSystem(ctx, metrics.SystemSample{Timestamp: testNow.Add(-time.Hour)})
	_ = s.AppendSystem(ctx, metrics.SystemSample{Timestamp: testNow.Add(-48 * time.Hour)})
	_ = s.AppendAlerts(ctx, []metrics.Alert{{ID: "a", Timestamp: testNow.Add(-time.Minute)}})

	bundle, err := s.Export(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(bundle.Network) != 1 || len(bundle.System) != 1 || len(bundle.Device) != 0 || len(bundle.Alert) != 1 {
		t.Errorf("Export() counts = %d/%d/%d/%d, want 1/1/0/1",
			len(bundle.Network), len(bundle.System), len(bundle.Device), len(bundle.Alert))
	}
	if bundle.ExportPeriodHours != 24 {
		t.Errorf("ExportPeriodHours = %v, want 24", bundle.ExportPeriodHours)
	}
	if !bundle.ExportTimestamp.Equal(testNow) {
		t.Errorf("ExportTimestamp = %v, want %v", bundle.ExportTimestamp, testNow)
	}
}

func TestExportBundle_Only(t *testing.T) {
	bundle := &ExportBundle{
		System:            []metrics.SystemSample{{Timestamp: testNow, CPUPercent: 12}},
		Alert:             []metrics.Alert{{ID: "a", Timestamp: testNow}},
		ExportTimestamp:   testNow,
		ExportPeriodHours: 6,
	}

	tests := []struct {
		name     string
		bundle   *ExportBundle
		wantKeys []string
		noKeys   []string
	}{
		{"All datasets", bundle, []string{"network", "system", "device", "alert", "export_timestamp", "export_period_hours"}, nil},
		{"System only", bundle.Only(DatasetSystem), []string{"system", "export_timestamp", "export_period_hours"}, []string{"network", "device", "alert"}},
		{"Empty dataset only", bundle.Only(DatasetDevice), []string{"device"}, []string{"network", "system", "alert"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.bundle)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got map[string]json.RawMessage
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			for _, k := range tt.wantKeys {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q in %s", k, data)
				}
			}
			for _, k := range tt.noKeys {
				if _, ok := got[k]; ok {
					t.Errorf("unexpected key %q in %s", k, data)
				}
			}
		})
	}

	if string(mustMarshal(t, bundle.Only(DatasetDevice))["device"]) != "[]" {
		t.Error("an included empty dataset should encode as []")
	}
	if only := bundle.Only(DatasetSystem); only.Includes(DatasetAlert) || !only.Includes(DatasetSystem) || len(only.Alert) != 0 {
		t.Errorf("Only(system) = %+v", only)
	}
}

func mustMarshal(t *testing.T, b *ExportBundle) map[string]json.RawMessage {
	t.Helper()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(Options{Dir: t.TempDir(), Backend: "redis"}); err == nil {
		t.Error("Open() with unknown backend: expected error, got nil")
	}
}

func TestParseDataset(t *testing.T) {
	tests := []struct {
		input   string
		want    Dataset
		wantErr bool
	}{
		{"network", DatasetNetwork, false},
		{"alert", DatasetAlert, false},
		{"alerts", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataset(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDataset(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownDataset) {
				t.Errorf("error %v does not wrap ErrUnknownDataset", err)
			}
			if got != tt.want {
				t.Errorf("ParseDataset(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
