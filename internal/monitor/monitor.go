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

// Package monitor runs the network, system and device polling loops.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuonguno98/netsentinel/internal/alert"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Default timing values.
const (
	DefaultErrorBackoff    = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	LatencyWarningMs       = 500.0
)

// CounterSource provides host counters and resource usage.
type CounterSource interface {
	Counters(ctx context.Context) (metrics.CounterSnapshot, error)
	Resources(ctx context.Context) (metrics.SystemSample, error)
}

// Prober checks whether a host answers.
type Prober interface {
	Ping(ctx context.Context, host string, timeout time.Duration) (metrics.DeviceStatus, error)
}

// Sink persists samples and alerts.
type Sink interface {
	AppendNetwork(ctx context.Context, s metrics.NetworkSample) error
	AppendSystem(ctx context.Context, s metrics.SystemSample) error
	AppendDevices(ctx context.Context, d []metrics.DeviceStatus) error
	AppendAlerts(ctx context.Context, a []metrics.Alert) error
}

// Config controls loop timing and inputs.
type Config struct {
	NetworkInterval        time.Duration
	SystemInterval         time.Duration
	DeviceInterval         time.Duration
	BandwidthThresholdMbps float64
	Devices                []string
	PingTimeout            time.Duration
	ErrorBackoff           time.Duration
	ShutdownTimeout        time.Duration
}

// LoopState is the lifecycle state of one polling loop.
type LoopState int32

// Loop states.
const (
	StateStopped LoopState = iota
	StateRunning
	StateStopping
)

func (s LoopState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s LoopState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Loop names.
const (
	LoopNetwork = "network"
	LoopSystem  = "system"
	LoopDevice  = "device"
)

var loopNames = []string{LoopNetwork, LoopSystem, LoopDevice}

type loop struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context) error
	state    atomic.Int32
}

// Start errors.
var (
	ErrAlreadyRunning = errors.New("monitor already running")
	// ErrLoopsStopping means a loop abandoned by a timed-out Stop has not exited yet.
	ErrLoopsStopping = errors.New("monitor loops still stopping")
)

// Monitor owns the three polling loops and the shared bandwidth calculator.
type Monitor struct {
	cfg    Config
	source CounterSource
	prober Prober
	sink   Sink
	alerts *alert.Manager
	calc   *metrics.BandwidthCalculator
	logger *slog.Logger

	loops map[string]*loop

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a monitor. Zero durations in cfg fall back to defaults.
func New(cfg Config, source CounterSource, prober Prober, sink Sink, alerts *alert.Manager, logger *slog.Logger) *Monitor {
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	m := &Monitor{
		cfg:    cfg,
		source: source,
		prober: prober,
		sink:   sink,
		alerts: alerts,
		calc:   metrics.NewBandwidthCalculator(),
		logger: logger.With("component", "monitor"),
	}
	m.loops = map[string]*loop{
		LoopNetwork: {name: LoopNetwork, interval: cfg.NetworkInterval, tick: m.networkTick},
		LoopSystem:  {name: LoopSystem, interval: cfg.SystemInterval, tick: m.systemTick},
		LoopDevice:  {name: LoopDevice, interval: cfg.DeviceInterval, tick: m.deviceTick},
	}
	return m
}

// Calculator exposes the bandwidth calculator for read-only use.
func (m *Monitor) Calculator() *metrics.BandwidthCalculator {
	return m.calc
}

// States reports the lifecycle state of every loop.
func (m *Monitor) States() map[string]LoopState {
	out := make(map[string]LoopState, len(m.loops))
	for name, l := range m.loops {
		out[name] = LoopState(l.state.Load())
	}
	return out
}

// Start launches the three loops. They run until Stop is called or ctx ends.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	for _, name := range loopNames {
		if LoopState(m.loops[name].state.Load()) != StateStopped {
			return fmt.Errorf("%w: %s loop", ErrLoopsStopping, name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	m.logger.Info("Starting monitoring loops",
		"network_interval", m.cfg.NetworkInterval,
		"system_interval", m.cfg.SystemInterval,
		"device_interval", m.cfg.DeviceInterval,
		"devices", m.cfg.Devices,
	)

	var wg sync.WaitGroup
	for _, name := range loopNames {
		l := m.loops[name]
		l.state.Store(int32(StateRunning))
		wg.Add(1)
		go m.run(runCtx, &wg, l)
	}

	done := m.done
	go func() {
		wg.Wait()
		close(done)
	}()

	return nil
}

// Stop cancels the loops and waits up to the shutdown timeout for them to exit.
// It returns false if some loop was still busy when the timeout expired;
// that loop is abandoned and exits on its own once its current call returns.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return true
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	for _, l := range m.loops {
		l.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	}
	cancel()

	select {
	case <-done:
		m.logger.Info("Monitoring loops stopped")
		return true
	case <-time.After(m.cfg.ShutdownTimeout):
		for name, st := range m.States() {
			if st != StateStopped {
				m.logger.Warn("Loop did not stop in time", "loop", name, "timeout", m.cfg.ShutdownTimeout)
			}
		}
		return false
	}
}

func (m *Monitor) run(ctx context.Context, wg *sync.WaitGroup, l *loop) {
	defer wg.Done()
	defer l.state.Store(int32(StateStopped))

	logger := m.logger.With("loop", l.name)
	logger.Info("Loop started", "interval", l.interval)

	for {
		wait := l.interval
		if err := m.safeTick(ctx, l); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Tick failed, backing off", "error", err, "backoff", m.cfg.ErrorBackoff)
			wait = m.cfg.ErrorBackoff
		}

		if !sleep(ctx, wait) {
			break
		}
	}

	logger.Info("Loop stopped")
}

// safeTick runs one tick and converts a panic into an error.
func (m *Monitor) safeTick(ctx context.Context, l *loop) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s tick: %v", l.name, r)
			m.logger.Debug("Recovered tick panic", "loop", l.name, "stack", string(debug.Stack()))
		}
	}()
	return l.tick(ctx)
}

// sleep waits for d or until ctx ends. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// dispatch persists alerts, then hands them to the cooldown gate.
func (m *Monitor) dispatch(ctx context.Context, alerts []metrics.Alert) {
	if len(alerts) == 0 {
		return
	}
	if err := m.sink.AppendAlerts(ctx, alerts); err != nil {
		m.logger.Error("Failed to persist alerts", "error", err)
	}
	res := m.alerts.SendAll(ctx, alerts)
	m.logger.Debug("Alerts dispatched", "sent", res.Sent, "failed", res.Failed, "suppressed", res.Suppressed)
}

func (m *Monitor) networkTick(ctx context.Context) error {
	snap, err := m.source.Counters(ctx)
	if err != nil {
		return err
	}

	up, down := m.calc.Compute(snap)
	anomalies := m.calc.DetectAnomalies(up, down, m.cfg.BandwidthThresholdMbps)
	alerts := m.alerts.ProcessNetwork(up, down, anomalies)

	sample := metrics.NetworkSample{
		Timestamp:    snap.Timestamp,
		BytesSent:    snap.BytesSent,
		BytesRecv:    snap.BytesRecv,
		PacketsSent:  snap.PacketsSent,
		PacketsRecv:  snap.PacketsRecv,
		UploadMbps:   up,
		DownloadMbps: down,
		Anomalies:    anomalies,
	}
	if err := m.sink.AppendNetwork(ctx, sample); err != nil {
		m.logger.Error("Failed to persist network sample", "error", err)
	}
	m.dispatch(ctx, alerts)

	m.logger.Debug("Network sample",
		"upload_mbps", up,
		"download_mbps", down,
		"anomalies", len(anomalies),
	)
	return nil
}

func (m *Monitor) systemTick(ctx context.Context) error {
	sample, err := m.source.Resources(ctx)
	if err != nil {
		return err
	}

	alerts := m.alerts.ProcessSystem(sample)
	if err := m.sink.AppendSystem(ctx, sample); err != nil {
		m.logger.Error("Failed to persist system sample", "error", err)
	}
	m.dispatch(ctx, alerts)

	m.logger.Debug("System sample",
		"cpu", sample.CPUPercent,
		"memory", sample.MemoryPercent,
		"disk", sample.DiskPercent,
	)
	return nil
}

func (m *Monitor) deviceTick(ctx context.Context) error {
	if len(m.cfg.Devices) == 0 {
		return nil
	}

	statuses := m.ProbeAll(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, st := range statuses {
		switch {
		case !st.IsReachable:
			m.logger.Warn("Device unreachable", "device", st.IPAddress)
		case st.ResponseTimeMs != nil && *st.ResponseTimeMs > LatencyWarningMs:
			m.logger.Warn("Device high latency", "device", st.IPAddress, "rtt_ms", *st.ResponseTimeMs)
		}
	}

	alerts := m.alerts.ProcessDevices(statuses)
	if err := m.sink.AppendDevices(ctx, statuses); err != nil {
		m.logger.Error("Failed to persist device statuses", "error", err)
	}
	m.dispatch(ctx, alerts)
	return nil
}

// ProbeAll pings every configured device concurrently and returns results
// in configuration order.
func (m *Monitor) ProbeAll(ctx context.Context) []metrics.DeviceStatus {
	statuses := make([]metrics.DeviceStatus, len(m.cfg.Devices))

	var wg sync.WaitGroup
	wg.Add(len(m.cfg.Devices))
	for i, host := range m.cfg.Devices {
		go func(i int, host string) {
			defer wg.Done()
			st, err := m.prober.Ping(ctx, host, m.cfg.PingTimeout)
			if err != nil {
				m.logger.Debug("Probe error", "device", host, "error", err)
				st.IsReachable = false
				st.ResponseTimeMs = nil
			}
			if st.Timestamp.IsZero() {
				st.Timestamp = time.Now()
			}
			st.IPAddress = host
			statuses[i] = st
		}(i, host)
	}
	wg.Wait()

	return statuses
}
