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
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// ExportBundle is every dataset restricted to one time window.
// A bundle narrowed with Only carries a single dataset.
type ExportBundle struct {
	Network           []metrics.NetworkSample `json:"network"`
	System            []metrics.SystemSample  `json:"system"`
	Device            []metrics.DeviceStatus  `json:"device"`
	Alert             []metrics.Alert         `json:"alert"`
	ExportTimestamp   time.Time               `json:"export_timestamp"`
	ExportPeriodHours float64                 `json:"export_period_hours"`

	only Dataset
}

// Only returns a copy of the bundle holding just ds.
func (b ExportBundle) Only(ds Dataset) *ExportBundle {
	out := &ExportBundle{
		ExportTimestamp:   b.ExportTimestamp,
		ExportPeriodHours: b.ExportPeriodHours,
		only:              ds,
	}
	switch ds {
	case DatasetNetwork:
		out.Network = b.Network
	case DatasetSystem:
		out.System = b.System
	case DatasetDevice:
		out.Device = b.Device
	case DatasetAlert:
		out.Alert = b.Alert
	}
	return out
}

// Includes reports whether ds is part of the bundle.
func (b ExportBundle) Includes(ds Dataset) bool {
	return b.only == "" || b.only == ds
}

// MarshalJSON writes included datasets as arrays, empty ones as [], and
// leaves excluded datasets out.
func (b ExportBundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Network           *[]metrics.NetworkSample `json:"network,omitempty"`
		System            *[]metrics.SystemSample  `json:"system,omitempty"`
		Device            *[]metrics.DeviceStatus  `json:"device,omitempty"`
		Alert             *[]metrics.Alert         `json:"alert,omitempty"`
		ExportTimestamp   time.Time                `json:"export_timestamp"`
		ExportPeriodHours float64                  `json:"export_period_hours"`
	}{
		Network:           included(b, DatasetNetwork, b.Network),
		System:            included(b, DatasetSystem, b.System),
		Device:            included(b, DatasetDevice, b.Device),
		Alert:             included(b, DatasetAlert, b.Alert),
		ExportTimestamp:   b.ExportTimestamp,
		ExportPeriodHours: b.ExportPeriodHours,
	})
}

func included[T any](b ExportBundle, ds Dataset, items []T) *[]T {
	if !b.Includes(ds) {
		return nil
	}
	if items == nil {
		items = []T{}
	}
	return &items
}

// Export collects all four datasets for the last window.
func (s *Store) Export(ctx context.Context, window time.Duration) (*ExportBundle, error) {
	network, err := s.NetworkHistory(ctx, window)
	if err != nil {
		return nil, err
	}
	system, err := s.SystemHistory(ctx, window)
	if err != nil {
		return nil, err
	}
	device, err := s.DeviceHistory(ctx, "", window)
	if err != nil {
		return nil, err
	}
	alerts, err := s.AlertHistory(ctx, window)
	if err != nil {
		return nil, err
	}

	return &ExportBundle{
		Network:           network,
		System:            system,
		Device:            device,
		Alert:             alerts,
		ExportTimestamp:   s.now(),
		ExportPeriodHours: window.Hours(),
	}, nil
}
