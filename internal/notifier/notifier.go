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

// Package notifier delivers alerts to email, Telegram or the log.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// ErrNotConfigured is returned by a channel that lacks credentials.
var ErrNotConfigured = errors.New("notifier not configured")

// Notifier delivers one alert.
type Notifier interface {
	Send(ctx context.Context, a metrics.Alert) error
}

// Named is a notifier with a channel name used in logs.
type Named struct {
	Name string
	Notifier
}

// Multi fans an alert out to several channels. Delivery succeeds when at
// least one channel accepts the alert.
type Multi struct {
	channels []Named
	logger   *slog.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(logger *slog.Logger, channels ...Named) *Multi {
	return &Multi{channels: channels, logger: logger.With("component", "notifier")}
}

// Channels returns the configured channel names.
func (m *Multi) Channels() []string {
	names := make([]string, len(m.channels))
	for i, c := range m.channels {
		names[i] = c.Name
	}
	return names
}

// Send delivers to every channel and reports an error only if all of them failed.
func (m *Multi) Send(ctx context.Context, a metrics.Alert) error {
	if len(m.channels) == 0 {
		return ErrNotConfigured
	}

	var errs []error
	for _, c := range m.channels {
		if err := c.Send(ctx, a); err != nil {
			m.logger.Warn("Notification channel failed", "channel", c.Name, "type", a.AlertType, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		m.logger.Debug("Notification delivered", "channel", c.Name, "type", a.AlertType)
	}

	if len(errs) == len(m.channels) {
		return errors.Join(errs...)
	}
	return nil
}

// Log writes alerts to a logger. It is the fallback channel when nothing else is configured.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs the alert at a level matching its severity.
func (l *Log) Send(ctx context.Context, a metrics.Alert) error {
	level := slog.LevelWarn
	if a.Severity == metrics.SeverityHigh || a.Severity == metrics.SeverityCritical {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "ALERT "+Subject(a),
		"id", a.ID,
		"severity", strings.ToUpper(string(a.Severity)),
		"message", a.Message,
		"timestamp", a.Timestamp,
	)
	return nil
}
