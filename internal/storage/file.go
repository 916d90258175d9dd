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
	"os"
	"path/filepath"
	"time"
)

// fileBackend keeps each dataset as a JSON array in its own file and
// rewrites the whole file on every append.
type fileBackend struct {
	dir string
}

func newFileBackend(dir string) (*fileBackend, error) {
	if dir == "" {
		return nil, errors.New("data directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &fileBackend{dir: dir}, nil
}

// DatasetFile returns the file name used for a dataset by the JSON backend.
func DatasetFile(ds Dataset) string {
	return string(ds) + "_data.json"
}

func (b *fileBackend) path(ds Dataset) string {
	return filepath.Join(b.dir, DatasetFile(ds))
}

// load reads every record of a dataset. A missing or empty file is an empty dataset.
func (b *fileBackend) load(ds Dataset) ([]record, error) {
	data, err := os.ReadFile(b.path(ds))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("corrupt dataset file %s: %w", b.path(ds), err)
	}

	recs := make([]record, 0, len(raws))
	for _, raw := range raws {
		r, _ := decodeRecord(raw)
		recs = append(recs, r)
	}
	return recs, nil
}

// store replaces the dataset file atomically via a temp file and rename.
func (b *fileBackend) store(ds Dataset, recs []record) error {
	raws := make([]json.RawMessage, len(recs))
	for i, r := range recs {
		raws[i] = r.raw
	}
	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, DatasetFile(ds)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.path(ds)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}

func (b *fileBackend) append(ctx context.Context, ds Dataset, recs []record, max int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := b.load(ds)
	if err != nil {
		return err
	}
	existing = append(existing, recs...)
	return b.store(ds, trim(existing, max))
}

func (b *fileBackend) since(ctx context.Context, ds Dataset, cutoff time.Time) ([]record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := b.load(ds)
	if err != nil {
		return nil, err
	}
	return filterSince(recs, cutoff), nil
}

func (b *fileBackend) close() error {
	return nil
}
