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
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/phuonguno98/netsentinel/internal/config"
	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/spf13/cobra"
)

// cfg holds the effective configuration. Flag defaults come from the
// environment so either source can set any value.
var cfg = config.FromEnv()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "netsentinel",
	Short: "NetSentinel - Network and host monitoring with alerting",
	Long: `NetSentinel watches host bandwidth, CPU, memory and disk usage and the
reachability of a list of devices. Threshold breaches and traffic anomalies
become alerts that are stored locally and delivered by email or Telegram.

Use 'netsentinel run' to begin monitoring.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile,
		"Log file path (empty = stdout)")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir,
		"Directory holding the stored datasets")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend,
		"Storage backend (json, sqlite)")
	flags.IntVar(&cfg.MaxRecords, "max-records", cfg.MaxRecords,
		"Records kept per dataset")
	flags.StringVar(&cfg.Timezone, "timezone", cfg.Timezone,
		"Timezone for exported timestamps (e.g., 'Asia/Ho_Chi_Minh', 'Local')")
}

// InitLogger initializes and returns a slog.Logger based on the provided settings.
// It is shared by all commands to ensure consistent logging format.
func InitLogger(levelStr, fileStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if fileStr != "" {
		f, err := os.OpenFile(fileStr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		handler = slog.NewJSONHandler(f, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// validConfig validates the merged configuration.
func validConfig() error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// openStore opens the configured storage backend.
func openStore(logger *slog.Logger) (*storage.Store, error) {
	store, err := storage.Open(storage.Options{
		Dir:        cfg.DataDir,
		Backend:    cfg.Backend,
		MaxRecords: cfg.MaxRecords,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

// location resolves the configured timezone.
func location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	return loc, nil
}

// hoursToDuration converts a fractional hour count from a flag.
func hoursToDuration(hours float64) (time.Duration, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return 0, fmt.Errorf("hours must be a positive number, got %g", hours)
	}
	return time.Duration(hours * float64(time.Hour)), nil
}
