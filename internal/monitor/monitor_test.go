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
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phuonguno98/netsentinel/internal/alert"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

const bytesPerMbit = 1024 * 1024 / 8

type fakeSource struct {
	mu        sync.Mutex
	snaps     []metrics.CounterSnapshot
	sample    metrics.SystemSample
	err       error
	panicking bool
	calls     atomic.Int32
}

func (f *fakeSource) Counters(context.Context) (metrics.CounterSnapshot, error) {
	f.calls.Add(1)
	if f.panicking {
		panic("counter source exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return metrics.CounterSnapshot{}, f.err
	}
	if len(f.snaps) == 0 {
		return metrics.CounterSnapshot{Timestamp: time.Now()}, nil
	}
	s := f.snaps[0]
	if len(f.snaps) > 1 {
		f.snaps = f.snaps[1:]
	}
	return s, nil
}

func (f *fakeSource) Resources(context.Context) (metrics.SystemSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return metrics.SystemSample{}, f.err
	}
	s := f.sample
	s.Timestamp = time.Now()
	return s, nil
}

type fakeProber struct {
	rtt     map[string]float64
	entered chan struct{}
	release chan struct{}
}

func (f *fakeProber) Ping(_ context.Context, host string, _ time.Duration) (metrics.DeviceStatus, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	st := metrics.DeviceStatus{Timestamp: time.Now(), IPAddress: host}
	if ms, ok := f.rtt[host]; ok {
		st.IsReachable = true
		st.ResponseTimeMs = &ms
	}
	return st, nil
}

type fakeSink struct {
	mu      sync.Mutex
	network []metrics.NetworkSample
	system  []metrics.SystemSample
	devices [][]metrics.DeviceStatus
	alerts  []metrics.Alert
}

func (f *fakeSink) AppendNetwork(_ context.Context, s metrics.NetworkSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.network = append(f.network, s)
	return nil
}

func (f *fakeSink) AppendSystem(_ context.Context, s metrics.SystemSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = append(f.system, s)
	return nil
}

func (f *fakeSink) AppendDevices(_ context.Context, d []metrics.DeviceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
	return nil
}

func (f *fakeSink) AppendAlerts(_ context.Context, a []metrics.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a...)
	return nil
}

func (f *fakeSink) networkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.network)
}

func (f *fakeSink) alertTypes() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make(map[string]bool)
	for _, a := range f.alerts {
		types[a.AlertType] = true
	}
	return types
}

type countingSender struct {
	sent atomic.Int32
}

func (c *countingSender) Send(context.Context, metrics.Alert) error {
	c.sent.Add(1)
	return nil
}

func newTestMonitor(cfg Config, source *fakeSource, prober *fakeProber) (*Monitor, *fakeSink, *countingSender) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &countingSender{}
	alerts := alert.NewManager(sender, alert.Options{
		Thresholds: alert.Thresholds{BandwidthMbps: 1, CPU: 80, Memory: 85, Disk: 90},
	}, logger)
	sink := &fakeSink{}
	if prober == nil {
		prober = &fakeProber{}
	}
	return New(cfg, source, prober, sink, alerts, logger), sink, sender
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitor_NetworkTick(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{snaps: []metrics.CounterSnapshot{
		{Timestamp: t0},
		{Timestamp: t0.Add(time.Second), BytesSent: 2 * bytesPerMbit, BytesRecv: bytesPerMbit / 2},
	}}
	m, sink, sender := newTestMonitor(Config{BandwidthThresholdMbps: 1}, source, nil)

	for i := 0; i < 2; i++ {
		if err := m.networkTick(context.Background()); err != nil {
			t.Fatalf("networkTick() error = %v", err)
		}
	}

	if len(sink.network) != 2 {
		t.Fatalf("persisted %d network samples, want 2", len(sink.network))
	}
	if sink.network[0].UploadMbps != 0 || sink.network[0].DownloadMbps != 0 {
		t.Errorf("baseline sample = %+v, want zero rates", sink.network[0])
	}
	got := sink.network[1]
	if got.UploadMbps != 2 || got.DownloadMbps != 0.5 {
		t.Errorf("rates = %v/%v, want 2/0.5", got.UploadMbps, got.DownloadMbps)
	}
	if len(got.Anomalies) == 0 {
		t.Error("expected a threshold anomaly on the second sample")
	}

	types := sink.alertTypes()
	for _, want := range []string{alert.TypeHighUpload, alert.TypeTrafficAnomaly} {
		if !types[want] {
			t.Errorf("missing alert %q in %v", want, types)
		}
	}
	if types[alert.TypeHighDownload] {
		t.Error("download below threshold should not alert")
	}
	if sender.sent.Load() == 0 {
		t.Error("no alerts were delivered")
	}
}

func TestMonitor_SystemTick(t *testing.T) {
	source := &fakeSource{sample: metrics.SystemSample{CPUPercent: 95, MemoryPercent: 40, DiskPercent: 10}}
	m, sink, _ := newTestMonitor(Config{}, source, nil)

	if err := m.systemTick(context.Background()); err != nil {
		t.Fatalf("systemTick() error = %v", err)
	}
	if len(sink.system) != 1 || sink.system[0].CPUPercent != 95 {
		t.Errorf("system samples = %+v", sink.system)
	}
	types := sink.alertTypes()
	if !types[alert.TypeHighCPU] || types[alert.TypeHighMemory] {
		t.Errorf("alert types = %v, want only %q", types, alert.TypeHighCPU)
	}
}

func TestMonitor_DeviceTick(t *testing.T) {
	t.Run("Order preserved", func(t *testing.T) {
		prober := &fakeProber{rtt: map[string]float64{"10.0.0.1": 12.5, "10.0.0.3": 1500}}
		cfg := Config{Devices: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, PingTimeout: time.Second}
		m, sink, _ := newTestMonitor(cfg, &fakeSource{}, prober)

		if err := m.deviceTick(context.Background()); err != nil {
			t.Fatalf("deviceTick() error = %v", err)
		}
		if len(sink.devices) != 1 {
			t.Fatalf("persisted %d device batches, want 1", len(sink.devices))
		}
		batch := sink.devices[0]
		for i, host := range cfg.Devices {
			if batch[i].IPAddress != host {
				t.Errorf("batch[%d] = %s, want %s", i, batch[i].IPAddress, host)
			}
		}
		if !batch[0].IsReachable || batch[1].IsReachable {
			t.Errorf("reachability = %v/%v, want true/false", batch[0].IsReachable, batch[1].IsReachable)
		}

		types := sink.alertTypes()
		if !types[alert.TypeDeviceUnreachable] || !types[alert.TypeHighLatency] {
			t.Errorf("alert types = %v", types)
		}
	})

	t.Run("No devices", func(t *testing.T) {
		m, sink, _ := newTestMonitor(Config{}, &fakeSource{}, nil)
		if err := m.deviceTick(context.Background()); err != nil {
			t.Fatalf("deviceTick() error = %v", err)
		}
		if len(sink.devices) != 0 {
			t.Errorf("persisted %d batches, want 0", len(sink.devices))
		}
	})
}

func TestMonitor_SafeTickRecoversPanic(t *testing.T) {
	m, _, _ := newTestMonitor(Config{}, &fakeSource{panicking: true}, nil)

	err := m.safeTick(context.Background(), m.loops[LoopNetwork])
	if err == nil {
		t.Fatal("safeTick() error = nil, want recovered panic")
	}
}

func TestMonitor_StartStop(t *testing.T) {
	cfg := Config{
		NetworkInterval: 10 * time.Millisecond,
		SystemInterval:  10 * time.Millisecond,
		DeviceInterval:  10 * time.Millisecond,
		Devices:         []string{"10.0.0.1"},
	}
	m, sink, _ := newTestMonitor(cfg, &fakeSource{}, &fakeProber{rtt: map[string]float64{"10.0.0.1": 1}})

	for name, st := range m.States() {
		if st != StateStopped {
			t.Errorf("before Start: %s = %v, want stopped", name, st)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	waitFor(t, func() bool { return sink.networkCount() >= 3 })

	if !m.Stop() {
		t.Fatal("Stop() = false, want clean shutdown")
	}
	for name, st := range m.States() {
		if st != StateStopped {
			t.Errorf("after Stop: %s = %v, want stopped", name, st)
		}
	}
	if !m.Stop() {
		t.Error("Stop() on a stopped monitor should report true")
	}
}

func TestMonitor_ErrorBackoff(t *testing.T) {
	source := &fakeSource{err: errors.New("counters unavailable")}
	cfg := Config{
		NetworkInterval: time.Millisecond,
		SystemInterval:  time.Hour,
		DeviceInterval:  time.Hour,
		ErrorBackoff:    time.Hour,
	}
	m, _, _ := newTestMonitor(cfg, source, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return source.calls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)

	if n := source.calls.Load(); n != 1 {
		t.Errorf("Counters called %d times, want 1 while backing off", n)
	}
	if !m.Stop() {
		t.Error("Stop() should interrupt the backoff sleep")
	}
}

func TestMonitor_StopTimeout(t *testing.T) {
	prober := &fakeProber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	cfg := Config{
		NetworkInterval: time.Hour,
		SystemInterval:  time.Hour,
		DeviceInterval:  time.Hour,
		Devices:         []string{"10.0.0.1"},
		ShutdownTimeout: 20 * time.Millisecond,
	}
	m, _, _ := newTestMonitor(cfg, &fakeSource{}, prober)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-prober.entered

	if m.Stop() {
		t.Error("Stop() = true, want false while a probe is blocked")
	}
	if st := m.States()[LoopDevice]; st != StateStopping {
		t.Errorf("device loop = %v, want stopping", st)
	}

	close(prober.release)
	waitFor(t, func() bool { return m.States()[LoopDevice] == StateStopped })
}

func TestMonitor_RestartAfterStopTimeout(t *testing.T) {
	prober := &fakeProber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	cfg := Config{
		NetworkInterval: time.Hour,
		SystemInterval:  time.Hour,
		DeviceInterval:  time.Hour,
		Devices:         []string{"10.0.0.1"},
		ShutdownTimeout: 20 * time.Millisecond,
	}
	m, _, _ := newTestMonitor(cfg, &fakeSource{}, prober)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-prober.entered
	if m.Stop() {
		t.Fatal("Stop() = true, want false while a probe is blocked")
	}

	if err := m.Start(context.Background()); !errors.Is(err, ErrLoopsStopping) {
		t.Fatalf("Start() with an abandoned loop error = %v, want ErrLoopsStopping", err)
	}

	close(prober.release)
	waitFor(t, func() bool { return m.States()[LoopDevice] == StateStopped })

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() after loops exited error = %v", err)
	}
	defer m.Stop()

	for name, st := range m.States() {
		if st != StateRunning {
			t.Errorf("%s loop = %v after restart, want running", name, st)
		}
	}
}

func TestMonitor_Status(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{snaps: []metrics.CounterSnapshot{
		{Timestamp: t0},
		{Timestamp: t0.Add(time.Second), BytesSent: 4 * bytesPerMbit},
		{Timestamp: t0.Add(2 * time.Second), BytesSent: 4 * bytesPerMbit},
	}}
	m, _, _ := newTestMonitor(Config{BandwidthThresholdMbps: 100}, source, nil)

	for i := 0; i < 3; i++ {
		if err := m.networkTick(context.Background()); err != nil {
			t.Fatalf("networkTick() error = %v", err)
		}
	}

	st := m.Status()
	if st.BandwidthReadings != 2 {
		t.Errorf("BandwidthReadings = %d, want 2", st.BandwidthReadings)
	}
	if st.AvgUploadMbps != 2 {
		t.Errorf("AvgUploadMbps = %v, want 2", st.AvgUploadMbps)
	}
	if st.TotalAlerts == 0 {
		t.Error("threshold breach should appear in the alert totals")
	}
	if st.Loops[LoopNetwork] != StateStopped {
		t.Errorf("network loop = %v, want stopped", st.Loops[LoopNetwork])
	}
}

func TestLoopState_String(t *testing.T) {
	tests := map[LoopState]string{
		StateStopped:  "stopped",
		StateRunning:  "running",
		StateStopping: "stopping",
		LoopState(9):  "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("LoopState(%d).String() = %q, want %q", st, got, want)
		}
	}
}
