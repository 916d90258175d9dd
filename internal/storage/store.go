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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Backend kinds accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultMaxRecords is the per-dataset retention cap.
const DefaultMaxRecords = 10000

// backend persists raw records for one dataset at a time.
// Calls for the same dataset are serialized by Store.
type backend interface {
	append(ctx context.Context, ds Dataset, recs []record, max int) error
	since(ctx context.Context, ds Dataset, cutoff time.Time) ([]record, error)
	close() error
}

// Options configures Open.
type Options struct {
	Dir        string
	Backend    string
	MaxRecords int
	Logger     *slog.Logger
}

// Store is the append-only time-series store for samples and alerts.
type Store struct {
	backend    backend
	maxRecords int
	locks      map[Dataset]*sync.Mutex
	logger     *slog.Logger
	now        func() time.Time
}

// Open creates a store in opts.Dir using the selected backend.
func Open(opts Options) (*Store, error) {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var (
		b   backend
		err error
	)
	switch strings.ToLower(opts.Backend) {
	case "", BackendJSON:
		b, err = newFileBackend(opts.Dir)
	case BackendSQLite:
		b, err = newSQLiteBackend(opts.Dir)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	return newStore(b, opts.MaxRecords, opts.Logger), nil
}

func newStore(b backend, maxRecords int, logger *slog.Logger) *Store {
	locks := make(map[Dataset]*sync.Mutex, len(Datasets))
	for _, ds := range Datasets {
		locks[ds] = &sync.Mutex{}
	}
	return &Store{
		backend:    b,
		maxRecords: maxRecords,
		locks:      locks,
		logger:     logger.With("component", "storage"),
		now:        time.Now,
	}
}

// Close releases backend resources.
func (s *Store) Close() error {
	return s.backend.close()
}

func (s *Store) appendRecords(ctx context.Context, ds Dataset, recs []record) error {
	if len(recs) == 0 {
		return nil
	}
	mu, ok := s.locks[ds]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDataset, ds)
	}

	mu.Lock()
	defer mu.Unlock()

	if err := s.backend.append(ctx, ds, recs, s.maxRecords); err != nil {
		return fmt.Errorf("failed to append %s records: %w", ds, err)
	}
	s.logger.Debug("Records appended", "dataset", ds, "count", len(recs))
	return nil
}

func (s *Store) query(ctx context.Context, ds Dataset, window time.Duration) ([]record, error) {
	cutoff := s.now().Add(-window)
	recs, err := s.backend.since(ctx, ds, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", ds, err)
	}
	return recs, nil
}

// AppendNetwork persists one network sample.
func (s *Store) AppendNetwork(ctx context.Context, sample metrics.NetworkSample) error {
	if sample.Anomalies == nil {
		sample.Anomalies = []string{}
	}
	recs, err := encodeRecords([]metrics.NetworkSample{sample}, func(v metrics.NetworkSample) time.Time { return v.Timestamp })
	if err != nil {
		return err
	}
	return s.appendRecords(ctx, DatasetNetwork, recs)
}

// AppendSystem persists one resource sample.
func (s *Store) AppendSystem(ctx context.Context, sample metrics.SystemSample) error {
	recs, err := encodeRecords([]metrics.SystemSample{sample}, func(v metrics.SystemSample) time.Time { return v.Timestamp })
	if err != nil {
		return err
	}
	return s.appendRecords(ctx, DatasetSystem, recs)
}

// AppendDevices persists a batch of probe results.
func (s *Store) AppendDevices(ctx context.Context, statuses []metrics.DeviceStatus) error {
	recs, err := encodeRecords(statuses, func(v metrics.DeviceStatus) time.Time { return v.Timestamp })
	if err != nil {
		return err
	}
	return s.appendRecords(ctx, DatasetDevice, recs)
}

// AppendAlerts persists a batch of alerts.
func (s *Store) AppendAlerts(ctx context.Context, alerts []metrics.Alert) error {
	recs, err := encodeRecords(alerts, func(v metrics.Alert) time.Time { return v.Timestamp })
	if err != nil {
		return err
	}
	return s.appendRecords(ctx, DatasetAlert, recs)
}

// NetworkHistory returns network samples from the last window, oldest first.
func (s *Store) NetworkHistory(ctx context.Context, window time.Duration) ([]metrics.NetworkSample, error) {
	recs, err := s.query(ctx, DatasetNetwork, window)
	if err != nil {
		return nil, err
	}
	return decodeRecords[metrics.NetworkSample](recs), nil
}

// SystemHistory returns resource samples from the last window, oldest first.
func (s *Store) SystemHistory(ctx context.Context, window time.Duration) ([]metrics.SystemSample, error) {
	recs, err := s.query(ctx, DatasetSystem, window)
	if err != nil {
		return nil, err
	}
	return decodeRecords[metrics.SystemSample](recs), nil
}

// DeviceHistory returns probe results from the last window, oldest first.
// An empty host returns every device.
func (s *Store) DeviceHistory(ctx context.Context, host string, window time.Duration) ([]metrics.DeviceStatus, error) {
	recs, err := s.query(ctx, DatasetDevice, window)
	if err != nil {
		return nil, err
	}
	all := decodeRecords[metrics.DeviceStatus](recs)
	if host == "" {
		return all, nil
	}
	out := all[:0]
	for _, d := range all {
		if d.IPAddress == host {
			out = append(out, d)
		}
	}
	return out, nil
}

// AlertHistory returns alerts from the last window, oldest first.
func (s *Store) AlertHistory(ctx context.Context, window time.Duration) ([]metrics.Alert, error) {
	recs, err := s.query(ctx, DatasetAlert, window)
	if err != nil {
		return nil, err
	}
	return decodeRecords[metrics.Alert](recs), nil
}
