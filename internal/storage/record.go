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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Dataset names one of the persisted record collections.
type Dataset string

// Persisted datasets.
const (
	DatasetNetwork Dataset = "network"
	DatasetSystem  Dataset = "system"
	DatasetDevice  Dataset = "device"
	DatasetAlert   Dataset = "alert"
)

// Datasets lists every dataset in export order.
var Datasets = []Dataset{DatasetNetwork, DatasetSystem, DatasetDevice, DatasetAlert}

// ErrUnknownDataset is returned for a dataset name outside Datasets.
var ErrUnknownDataset = errors.New("unknown dataset")

// ParseDataset validates a dataset name.
func ParseDataset(s string) (Dataset, error) {
	for _, ds := range Datasets {
		if string(ds) == s {
			return ds, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataset, s)
}

// record is one persisted JSON object with its parsed timestamp.
// A zero ts marks a record whose timestamp could not be read.
type record struct {
	ts  time.Time
	raw json.RawMessage
}

// Layouts accepted when reading timestamps. Records written by this
// package always use RFC 3339 with nanoseconds; zone-less ISO 8601 values
// are read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// decodeRecord reads the timestamp of a raw object and rewrites it to
// RFC 3339 so typed decoding never trips over zone-less values.
func decodeRecord(raw json.RawMessage) (record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return record{raw: raw}, false
	}

	var s string
	if err := json.Unmarshal(fields["timestamp"], &s); err != nil {
		return record{raw: raw}, false
	}

	ts, err := parseTimestamp(s)
	if err != nil {
		return record{raw: raw}, false
	}

	canonical := ts.Format(time.RFC3339Nano)
	if canonical != s {
		fields["timestamp"], _ = json.Marshal(canonical)
		if rewritten, err := json.Marshal(fields); err == nil {
			raw = rewritten
		}
	}

	return record{ts: ts, raw: raw}, true
}

func encodeRecords[T any](items []T, stamp func(T) time.Time) ([]record, error) {
	out := make([]record, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		out = append(out, record{ts: stamp(item), raw: raw})
	}
	return out, nil
}

func decodeRecords[T any](recs []record) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.raw, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// trim keeps the newest max records. Records are sorted newest first when
// trimming happens, matching the on-disk order after a retention pass.
func trim(recs []record, max int) []record {
	if max <= 0 || len(recs) <= max {
		return recs
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ts.After(recs[j].ts)
	})
	return recs[:max]
}

// filterSince returns records at or after cutoff, oldest first.
// Records with unreadable timestamps are skipped.
func filterSince(recs []record, cutoff time.Time) []record {
	out := make([]record, 0, len(recs))
	for _, r := range recs {
		if r.ts.IsZero() || r.ts.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ts.Before(out[j].ts)
	})
	return out
}
