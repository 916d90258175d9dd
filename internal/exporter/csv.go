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

// Package exporter writes stored datasets and live alerts to files.
package exporter

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	naString        = "N/A"
	writeBufferSize = 8192
)

// Format selects the export file format.
type Format string

// Export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (must be json or csv)", s)
	}
}

// WriteJSON writes the bundle as one indented JSON document.
func WriteJSON(path string, bundle *storage.ExportBundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// WriteCSV writes one CSV file per dataset next to base. For base
// "out/network_data.csv" the files are "out/network_data_network.csv" and so on.
// Datasets left out of the bundle are skipped. Timestamps are rendered in loc.
// It returns the written paths.
func WriteCSV(base string, bundle *storage.ExportBundle, loc *time.Location) ([]string, error) {
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".csv"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	tables := []struct {
		ds     storage.Dataset
		header []string
		rows   [][]string
	}{
		{storage.DatasetNetwork, networkHeader, networkRows(bundle.Network, loc)},
		{storage.DatasetSystem, systemHeader, systemRows(bundle.System, loc)},
		{storage.DatasetDevice, deviceHeader, deviceRows(bundle.Device, loc)},
		{storage.DatasetAlert, alertHeader, alertRows(bundle.Alert, loc)},
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		if !bundle.Includes(t.ds) {
			continue
		}
		path := fmt.Sprintf("%s_%s%s", stem, t.ds, ext)
		if err := writeTable(path, t.header, t.rows); err != nil {
			return paths, fmt.Errorf("failed to write %s table: %w", t.ds, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTable(path string, header []string, rows [][]string) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	bufWriter := bufio.NewWriterSize(file, writeBufferSize)
	csvWriter := csv.NewWriter(bufWriter)

	if err := csvWriter.Write(header); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("buffer writer error: %w", err)
	}
	return nil
}

var (
	networkHeader = []string{"Timestamp", "Bytes Sent", "Bytes Received", "Packets Sent", "Packets Received",
		"Upload (Mbps)", "Download (Mbps)", "Anomalies"}
	systemHeader = []string{"Timestamp", "CPU Utilization (%)", "Memory Utilization (%)", "Disk Utilization (%)"}
	deviceHeader = []string{"Timestamp", "IP Address", "Reachable", "Response Time (ms)"}
	alertHeader  = []string{"Timestamp", "ID", "Type", "Severity", "Message", "Resolved"}
)

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timestampLayout)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func networkRows(samples []metrics.NetworkSample, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			formatTime(s.Timestamp, loc),
			strconv.FormatUint(s.BytesSent, 10),
			strconv.FormatUint(s.BytesRecv, 10),
			strconv.FormatUint(s.PacketsSent, 10),
			strconv.FormatUint(s.PacketsRecv, 10),
			formatFloat(s.UploadMbps),
			formatFloat(s.DownloadMbps),
			strings.Join(s.Anomalies, "; "),
		})
	}
	return rows
}

func systemRows(samples []metrics.SystemSample, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			formatTime(s.Timestamp, loc),
			formatFloat(s.CPUPercent),
			formatFloat(s.MemoryPercent),
			formatFloat(s.DiskPercent),
		})
	}
	return rows
}

func deviceRows(statuses []metrics.DeviceStatus, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rtt := naString
		if s.ResponseTimeMs != nil {
			rtt = formatFloat(*s.ResponseTimeMs)
		}
		rows = append(rows, []string{
			formatTime(s.Timestamp, loc),
			s.IPAddress,
			strconv.FormatBool(s.IsReachable),
			rtt,
		})
	}
	return rows
}

func alertRows(alerts []metrics.Alert, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, alertRow(a, loc))
	}
	return rows
}

func alertRow(a metrics.Alert, loc *time.Location) []string {
	return []string{
		formatTime(a.Timestamp, loc),
		a.ID,
		a.AlertType,
		string(a.Severity),
		a.Message,
		strconv.FormatBool(a.Resolved),
	}
}
