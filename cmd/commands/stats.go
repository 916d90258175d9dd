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

	"github.com/dustin/go-humanize"
	"github.com/phuonguno98/netsentinel/internal/collector"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
	"github.com/spf13/cobra"
)

var statsSample time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print current bandwidth and resource usage",
	Long: `Take two counter snapshots a sample apart and print the resulting
bandwidth together with current CPU, memory and disk usage.

Example:
  netsentinel stats --sample 2s --exclude-interfaces docker0`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().DurationVar(&statsSample, "sample", time.Second, "Gap between the two counter snapshots")
	statsCmd.Flags().StringVar(&cfg.DiskPath, "disk-path", cfg.DiskPath, "Mount point whose usage is sampled")
	statsCmd.Flags().StringSliceVar(&cfg.IncludeInterfaces, "include-interfaces", cfg.IncludeInterfaces,
		"Comma-separated list of network interfaces to count (empty = all)")
	statsCmd.Flags().StringSliceVar(&cfg.ExcludeInterfaces, "exclude-interfaces", cfg.ExcludeInterfaces,
		"Comma-separated list of network interfaces to exclude")
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsSample <= 0 {
		return fmt.Errorf("sample must be positive, got %s", statsSample)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	source := collector.NewHostSource(cfg.DiskPath, cfg.IncludeInterfaces, cfg.ExcludeInterfaces)

	first, err := source.Counters(ctx)
	if err != nil {
		return fmt.Errorf("failed to read network counters: %w", err)
	}

	select {
	case <-time.After(statsSample):
	case <-ctx.Done():
		return ctx.Err()
	}

	second, err := source.Counters(ctx)
	if err != nil {
		return fmt.Errorf("failed to read network counters: %w", err)
	}
	upload, download := metrics.CalculateBandwidthMbps(first, second)

	res, err := source.Resources(ctx)
	if err != nil {
		return fmt.Errorf("failed to read resource usage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Upload:     %8.3f Mbps\n", upload)
	fmt.Fprintf(out, "Download:   %8.3f Mbps\n", download)
	fmt.Fprintf(out, "Sent:       %s (%d packets)\n", humanize.IBytes(second.BytesSent), second.PacketsSent)
	fmt.Fprintf(out, "Received:   %s (%d packets)\n", humanize.IBytes(second.BytesRecv), second.PacketsRecv)
	fmt.Fprintf(out, "CPU:        %6.2f%%\n", res.CPUPercent)
	fmt.Fprintf(out, "Memory:     %6.2f%%\n", res.MemoryPercent)
	fmt.Fprintf(out, "Disk (%s): %6.2f%%\n", cfg.DiskPath, res.DiskPercent)
	return nil
}
