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

	"github.com/phuonguno98/netsentinel/internal/report"
	"github.com/spf13/cobra"
)

var analyzeHours float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize stored history",
	Long: `Print bandwidth, resource and device statistics together with an alert
summary for a recent time window.

Example:
  netsentinel analyze --hours 12`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&analyzeHours, "hours", 24, "Time window to analyze, in hours")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if err := validConfig(); err != nil {
		return err
	}
	window, err := hoursToDuration(analyzeHours)
	if err != nil {
		return err
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
		return fmt.Errorf("failed to load history: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Analyze(bundle).Format())
	return nil
}
