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

package exporter

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Journal defaults.
const (
	DefaultJournalFlushInterval = 5 * time.Second
	DefaultJournalBufferSize    = 20
	DefaultMaxJournalSize       = 10 * 1024 * 1024
)

// openJournalFile is replaced in tests.
var openJournalFile = func(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0o644)
}

// JournalOptions configures an AlertJournal. Zero values use the defaults.
type JournalOptions struct {
	Path          string
	Location      *time.Location
	FlushInterval time.Duration
	BufferSize    int   // Alerts written before a forced flush
	MaxSize       int64 // Size that triggers rotation
}

// AlertJournal appends every alert it receives to a CSV file with buffering
// and size-based rotation.
type AlertJournal struct {
	opts          JournalOptions
	file          *os.File
	csvWriter     *csv.Writer
	bufWriter     *bufio.Writer
	alerts        <-chan metrics.Alert
	pending       int
	logger        *slog.Logger
	headerWritten bool
	currentSize   int64
	fileIndex     int
}

// NewAlertJournal opens (or appends to) the journal file.
func NewAlertJournal(opts JournalOptions, alerts <-chan metrics.Alert, logger *slog.Logger) (*AlertJournal, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultJournalFlushInterval
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultJournalBufferSize
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxJournalSize
	}

	file, err := openJournalFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	// Get initial file size (if appending)
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	bufWriter := bufio.NewWriterSize(file, writeBufferSize)
	return &AlertJournal{
		opts:          opts,
		file:          file,
		bufWriter:     bufWriter,
		csvWriter:     csv.NewWriter(bufWriter),
		alerts:        alerts,
		logger:        logger.With("component", "journal"),
		headerWritten: stat.Size() > 0,
		currentSize:   stat.Size(),
	}, nil
}

// Start consumes alerts until ctx is done or the channel closes, then flushes.
func (j *AlertJournal) Start(ctx context.Context) error {
	j.logger.Info("Starting alert journal", "path", j.opts.Path)

	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return j.flush()

		case a, ok := <-j.alerts:
			if !ok {
				return j.flush()
			}

			if err := j.write(a); err != nil {
				j.logger.Error("Failed to write alert", "error", err)
			}

			j.pending++
			if j.pending >= j.opts.BufferSize {
				if err := j.flush(); err != nil {
					j.logger.Error("Failed to flush", "error", err)
				}
			}

		case <-ticker.C:
			if j.pending > 0 {
				if err := j.flush(); err != nil {
					j.logger.Error("Failed to flush", "error", err)
				}
			}
		}
	}
}

func (j *AlertJournal) write(a metrics.Alert) error {
	if !j.headerWritten {
		if err := j.csvWriter.Write(alertHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		j.headerWritten = true
	}

	if j.currentSize >= j.opts.MaxSize {
		if err := j.rotate(); err != nil {
			j.logger.Error("Failed to rotate journal", "error", err)
		}
	}

	row := alertRow(a, j.opts.Location)
	rowBytes := 1
	for _, cell := range row {
		rowBytes += len(cell) + 1
	}

	if err := j.csvWriter.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	j.currentSize += int64(rowBytes)
	return nil
}

func (j *AlertJournal) flush() error {
	j.csvWriter.Flush()
	if err := j.csvWriter.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := j.bufWriter.Flush(); err != nil {
		return fmt.Errorf("buffer writer error: %w", err)
	}

	j.logger.Debug("Flushed to disk", "alerts", j.pending)
	j.pending = 0
	return nil
}

// Close flushes remaining rows and closes the file.
func (j *AlertJournal) Close() error {
	if err := j.flush(); err != nil {
		j.logger.Error("Final flush failed", "error", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// rotate moves writing to the next free "<name>_<n><ext>" file. If the new
// file cannot be opened the current one stays in use.
func (j *AlertJournal) rotate() error {
	j.logger.Info("Rotating journal file", "current_size", j.currentSize)

	if err := j.flush(); err != nil {
		return fmt.Errorf("flush before rotate failed: %w", err)
	}

	ext := filepath.Ext(j.opts.Path)
	base := strings.TrimSuffix(j.opts.Path, ext)
	index := j.fileIndex
	var newPath string
	for {
		index++
		newPath = fmt.Sprintf("%s_%d%s", base, index, ext)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			break
		}
	}

	file, err := openJournalFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open new rotated file: %w", err)
	}

	if err := j.file.Close(); err != nil {
		j.logger.Warn("Failed to close previous journal file", "error", err)
	}

	j.fileIndex = index
	j.file = file
	j.bufWriter = bufio.NewWriterSize(file, writeBufferSize)
	j.csvWriter = csv.NewWriter(j.bufWriter)
	j.currentSize = 0

	if err := j.csvWriter.Write(alertHeader); err != nil {
		return fmt.Errorf("failed to write header to rotated file: %w", err)
	}

	j.logger.Info("File rotated successfully", "new_path", newPath)
	return nil
}
