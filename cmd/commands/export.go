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

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/phuonguno98/netsentinel/internal/exporter"
	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportHours   float64
	exportFormat  string
	exportOutput  string
	exportDataset string
)

const allDatasets = "all"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored samples and alerts to a file",
	Long: `Export the network, system, device and alert datasets of a recent
time window. JSON writes one bundle; CSV writes one file per dataset.
Use --dataset to export a single dataset.

Examples:
  # Last 24 hours as JSON
  netsentinel export

  # Last week as CSV files in Vietnam local time
  netsentinel export --hours 168 --format csv --output week.csv --timezone Asia/Ho_Chi_Minh

  # Alerts of the last 6 hours only
  netsentinel export --hours 6 --dataset alert`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Float64Var(&exportHours, "hours", 24, "Time window to export, in hours")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(exporter.FormatJSON), "Output format (json, csv)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Output file (default: network_data_<timestamp>_<hours>h.<format>)")
	exportCmd.Flags().StringVarP(&exportDataset, "dataset", "d", allDatasets,
		"Dataset to export (all, network, system, device, alert)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := validConfig(); err != nil {
		return err
	}
	format, err := exporter.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	window, err := hoursToDuration(exportHours)
	if err != nil {
		return err
	}
	loc, err := location()
	if err != nil {
		return err
	}
	var only storage.Dataset
	if exportDataset != allDatasets {
		if only, err = storage.ParseDataset(exportDataset); err != nil {
			return err
		}
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)
	store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	bundle, err := store.Export(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to export data: %w", err)
	}
	if only != "" {
		bundle = bundle.Only(only)
	}

	output := exportOutput
	if output == "" {
		output = fmt.Sprintf("network_data_%s_%gh.%s", time.Now().In(loc).Format("20060102_150405"), exportHours, format)
	}

	out := cmd.OutOrStdout()
	switch format {
	case exporter.FormatCSV:
		paths, err := exporter.WriteCSV(output, bundle, loc)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
	default:
		if err := exporter.WriteJSON(output, bundle); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", output)
	}

	if only != "" {
		fmt.Fprintf(out, "Exported the %s dataset from the last %gh\n", only, exportHours)
		return nil
	}
	fmt.Fprintf(out, "Exported %d network, %d system, %d device and %d alert records from the last %gh\n",
		len(bundle.Network), len(bundle.System), len(bundle.Device), len(bundle.Alert), exportHours)
	return nil
}
