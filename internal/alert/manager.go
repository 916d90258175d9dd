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

// Package alert classifies samples into alerts, keeps the in-memory alert log
// and gates notifications through a per-type cooldown.
package alert

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Sender delivers one alert to an external channel.
type Sender interface {
	Send(ctx context.Context, a metrics.Alert) error
}

// Outcome is the result of passing one alert through the dispatch gate.
type Outcome int

// Dispatch outcomes.
const (
	OutcomeSent Outcome = iota
	OutcomeSuppressed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SendResult counts batch outcomes. Suppressed alerts count in neither Sent nor Failed.
type SendResult struct {
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Suppressed int `json:"suppressed"`
}

// Thresholds are the limits above which samples become alerts.
type Thresholds struct {
	BandwidthMbps float64
	CPU           float64
	Memory        float64
	Disk          float64
}

// Options configures a Manager.
type Options struct {
	Thresholds Thresholds
	Cooldown   time.Duration
	MaxActive  int
}

// DefaultMaxActive bounds the in-memory alert log.
const DefaultMaxActive = 1000

// Manager is shared by every polling loop; all state is guarded by mu.
type Manager struct {
	mu         sync.Mutex
	thresholds Thresholds
	cooldown   time.Duration
	lastSent   map[string]time.Time // alert type -> last successful send
	inflight   map[string]bool      // alert types currently being sent
	active     []metrics.Alert
	maxActive  int
	subs       map[int]chan metrics.Alert
	nextSub    int

	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager that delivers through sender.
func NewManager(sender Sender, opts Options, logger *slog.Logger) *Manager {
	if opts.MaxActive <= 0 {
		opts.MaxActive = DefaultMaxActive
	}
	return &Manager{
		thresholds: opts.Thresholds,
		cooldown:   opts.Cooldown,
		lastSent:   make(map[string]time.Time),
		inflight:   make(map[string]bool),
		maxActive:  opts.MaxActive,
		subs:       make(map[int]chan metrics.Alert),
		sender:     sender,
		logger:     logger.With("component", "alerts"),
		now:        time.Now,
	}
}

// Create builds an alert, appends it to the active log and publishes it to subscribers.
func (m *Manager) Create(alertType, message string, severity metrics.Severity) metrics.Alert {
	a := metrics.Alert{
		ID:        uuid.NewString(),
		AlertType: alertType,
		Message:   message,
		Severity:  severity,
		Timestamp: m.now(),
	}

	m.mu.Lock()
	m.active = append(m.active, a)
	if len(m.active) > m.maxActive {
		m.active = append(m.active[:0:0], m.active[len(m.active)-m.maxActive:]...)
	}
	for _, ch := range m.subs {
		select {
		case ch <- a:
		default:
		}
	}
	m.mu.Unlock()

	m.logger.Info("Alert created",
		"severity", strings.ToUpper(string(severity)),
		"type", alertType,
		"message", message,
	)
	return a
}

// Active returns a copy of the in-memory alert log, oldest first.
func (m *Manager) Active() []metrics.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]metrics.Alert, len(m.active))
	copy(out, m.active)
	return out
}

// Subscribe returns a channel that receives every alert created from now on.
// Slow subscribers miss alerts rather than block classification.
// The returned function unsubscribes and closes the channel.
func (m *Manager) Subscribe(buffer int) (<-chan metrics.Alert, func()) {
	ch := make(chan metrics.Alert, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// shouldSend reports whether the type is out of cooldown and marks it in flight.
func (m *Manager) shouldSend(alertType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inflight[alertType] {
		return false
	}
	if last, ok := m.lastSent[alertType]; ok && m.now().Sub(last) < m.cooldown {
		return false
	}
	m.inflight[alertType] = true
	return true
}

func (m *Manager) finishSend(alertType string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inflight, alertType)
	if ok {
		m.lastSent[alertType] = m.now()
	}
}

// MaybeSend delivers the alert unless its type is cooling down.
// The cooldown only starts after a successful delivery.
func (m *Manager) MaybeSend(ctx context.Context, a metrics.Alert) Outcome {
	if !m.shouldSend(a.AlertType) {
		m.logger.Info("Alert in cooldown period, skipping notification", "type", a.AlertType)
		return OutcomeSuppressed
	}

	err := m.sender.Send(ctx, a)
	m.finishSend(a.AlertType, err == nil)
	if err != nil {
		m.logger.Error("Failed to send alert notification", "type", a.AlertType, "error", err)
		return OutcomeFailed
	}

	m.logger.Info("Alert notification sent", "type", a.AlertType, "severity", a.Severity)
	return OutcomeSent
}

// SendAll passes each alert through MaybeSend in order.
func (m *Manager) SendAll(ctx context.Context, alerts []metrics.Alert) SendResult {
	var res SendResult
	for _, a := range alerts {
		switch m.MaybeSend(ctx, a) {
		case OutcomeSent:
			res.Sent++
		case OutcomeFailed:
			res.Failed++
		case OutcomeSuppressed:
			res.Suppressed++
		}
	}
	return res
}

// LastSent returns when an alert type was last delivered.
func (m *Manager) LastSent(alertType string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.lastSent[alertType]
	return t, ok
}
