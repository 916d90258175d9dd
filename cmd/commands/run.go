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
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/phuonguno98/netsentinel/internal/alert"
	"github.com/phuonguno98/netsentinel/internal/collector"
	"github.com/phuonguno98/netsentinel/internal/exporter"
	"github.com/phuonguno98/netsentinel/internal/monitor"
	"github.com/phuonguno98/netsentinel/internal/notifier"
	"github.com/phuonguno98/netsentinel/internal/server"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
	"github.com/phuonguno98/netsentinel/pkg/version"
	"github.com/spf13/cobra"
)

const (
	osWindows = "windows"
	osLinux   = "linux"
	osDarwin  = "darwin"
)

// DefaultStatusInterval is how often the running monitor logs a status report.
const DefaultStatusInterval = time.Minute

var statusInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start network and host monitoring",
	Long: `Start the network, system and device monitoring loops.
Samples and alerts are stored in the data directory; alerts are delivered by
email and Telegram when configured, otherwise they are logged.

Examples:
  # Run in foreground with default settings
  netsentinel run

  # Probe custom devices every minute and expose the API
  netsentinel run --devices 192.168.1.1,8.8.8.8 --device-interval 1m --api-addr :8080`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()

	// Thresholds
	flags.Float64Var(&cfg.BandwidthThresholdMbps, "bandwidth-threshold", cfg.BandwidthThresholdMbps,
		"Upload/download rate in Mbps that raises an alert")
	flags.Float64Var(&cfg.CPUThreshold, "cpu-threshold", cfg.CPUThreshold, "CPU usage percentage that raises an alert")
	flags.Float64Var(&cfg.MemoryThreshold, "memory-threshold", cfg.MemoryThreshold, "Memory usage percentage that raises an alert")
	flags.Float64Var(&cfg.DiskThreshold, "disk-threshold", cfg.DiskThreshold, "Disk usage percentage that raises an alert")

	// Polling
	flags.DurationVar(&cfg.NetworkInterval, "network-interval", cfg.NetworkInterval, "Bandwidth sampling interval")
	flags.DurationVar(&cfg.SystemInterval, "system-interval", cfg.SystemInterval, "CPU, memory and disk sampling interval")
	flags.DurationVar(&cfg.DeviceInterval, "device-interval", cfg.DeviceInterval, "Device reachability probe interval")
	flags.DurationVar(&cfg.PingTimeout, "ping-timeout", cfg.PingTimeout, "Timeout for one device probe")
	flags.BoolVar(&cfg.PrivilegedPing, "privileged", cfg.PrivilegedPing, "Send raw ICMP echoes (requires root or CAP_NET_RAW)")
	flags.StringSliceVar(&cfg.MonitoredDevices, "devices", cfg.MonitoredDevices, "Comma-separated list of hosts to probe")
	flags.StringVar(&cfg.DiskPath, "disk-path", cfg.DiskPath, "Mount point whose usage is sampled")
	flags.StringSliceVar(&cfg.IncludeInterfaces, "include-interfaces", cfg.IncludeInterfaces,
		"Comma-separated list of network interfaces to count (empty = all)")
	flags.StringSliceVar(&cfg.ExcludeInterfaces, "exclude-interfaces", cfg.ExcludeInterfaces,
		"Comma-separated list of network interfaces to exclude")

	// Alerts
	flags.DurationVar(&cfg.AlertCooldown, "cooldown", cfg.AlertCooldown, "Minimum gap between two notifications of one alert type")
	flags.IntVar(&cfg.MaxActiveAlerts, "max-active-alerts", cfg.MaxActiveAlerts, "Alerts kept in memory for summaries")
	flags.StringVar(&cfg.AlertJournal, "alert-journal", cfg.AlertJournal, "CSV file receiving every alert (empty = disabled)")

	// Outer surfaces
	flags.StringVar(&cfg.APIAddr, "api-addr", cfg.APIAddr, "HTTP API listen address (empty = disabled)")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Time allowed for loops to stop")
	flags.DurationVar(&statusInterval, "status-interval", DefaultStatusInterval, "Interval of the status report log")
}

// runMonitor is the main monitoring entry point.
func runMonitor(_ *cobra.Command, _ []string) error {
	if err := validConfig(); err != nil {
		return err
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)

	logger.Info("Starting NetSentinel",
		"version", version.Info(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)

	checkPlatformCapabilities(logger)
	logger.Info("Configuration loaded", "config", cfg.String())

	store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	alerts := alert.NewManager(buildNotifier(logger), alert.Options{
		Thresholds: alert.Thresholds{
			BandwidthMbps: cfg.BandwidthThresholdMbps,
			CPU:           cfg.CPUThreshold,
			Memory:        cfg.MemoryThreshold,
			Disk:          cfg.DiskThreshold,
		},
		Cooldown:  cfg.AlertCooldown,
		MaxActive: cfg.MaxActiveAlerts,
	}, logger)

	mon := monitor.New(monitor.Config{
		NetworkInterval:        cfg.NetworkInterval,
		SystemInterval:         cfg.SystemInterval,
		DeviceInterval:         cfg.DeviceInterval,
		BandwidthThresholdMbps: cfg.BandwidthThresholdMbps,
		Devices:                cfg.MonitoredDevices,
		PingTimeout:            cfg.PingTimeout,
		ShutdownTimeout:        cfg.ShutdownTimeout,
	},
		collector.NewHostSource(cfg.DiskPath, cfg.IncludeInterfaces, cfg.ExcludeInterfaces),
		collector.NewICMPProber(cfg.PrivilegedPing),
		store, alerts, logger)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, initiating shutdown", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Use WaitGroup to track auxiliary goroutines
	var wg sync.WaitGroup

	var journal *exporter.AlertJournal
	unsubscribe := func() {}
	if cfg.AlertJournal != "" {
		loc, err := location()
		if err != nil {
			return err
		}
		var ch <-chan metrics.Alert
		ch, unsubscribe = alerts.Subscribe(64)
		journal, err = exporter.NewAlertJournal(exporter.JournalOptions{Path: cfg.AlertJournal, Location: loc}, ch, logger)
		if err != nil {
			unsubscribe()
			return fmt.Errorf("failed to open alert journal: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := journal.Start(ctx); err != nil {
				logger.Error("Alert journal stopped with error", "error", err)
			}
		}()
	}

	if cfg.APIAddr != "" {
		var auth *server.Authenticator
		if cfg.APISecret != "" {
			auth = server.NewAuthenticator(cfg.APISecret, 0)
		} else {
			logger.Warn("API authentication disabled, set API_SECRET to require bearer tokens")
		}
		srv := server.NewServer(server.Options{
			History: store,
			Alerts:  alerts,
			Status:  mon,
			Auth:    auth,
			Logger:  logger,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.APIAddr, cfg.ShutdownTimeout); err != nil {
				logger.Error("API server stopped with error", "error", err)
			}
		}()
	}

	if err := mon.Start(ctx); err != nil {
		return err
	}
	logger.Info("NetSentinel is running", "data_dir", cfg.DataDir, "backend", cfg.Backend)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

waitLoop:
	for {
		select {
		case <-ctx.Done():
			break waitLoop
		case <-ticker.C:
			monitor.LogStatus(logger, mon.Status())
		}
	}

	logger.Info("Shutting down...")

	if !mon.Stop() {
		logger.Warn("Some monitoring loops did not stop in time")
	}

	// Closing the subscription lets the journal drain and exit
	unsubscribe()
	wg.Wait()

	if journal != nil {
		if err := journal.Close(); err != nil {
			logger.Error("Failed to close alert journal", "error", err)
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// buildNotifier assembles the configured delivery channels. The log channel
// is used only when neither email nor Telegram is configured.
func buildNotifier(logger *slog.Logger) notifier.Notifier {
	var channels []notifier.Named

	email := notifier.NewEmail(cfg.SMTPServer, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPassword, cfg.AlertRecipients)
	if email.Enabled() {
		channels = append(channels, notifier.Named{Name: "email", Notifier: email})
	}

	telegram := notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if telegram.Enabled() {
		channels = append(channels, notifier.Named{Name: "telegram", Notifier: telegram})
	}

	if len(channels) == 0 {
		logger.Warn("No notification channel configured, alerts will only be logged")
		channels = append(channels, notifier.Named{Name: "log", Notifier: notifier.NewLog(logger)})
	}

	multi := notifier.NewMulti(logger, channels...)
	logger.Info("Notification channels ready", "channels", multi.Channels())
	return multi
}

// checkPlatformCapabilities logs platform-specific probe requirements.
func checkPlatformCapabilities(logger *slog.Logger) {
	switch runtime.GOOS {
	case osWindows:
		if !cfg.PrivilegedPing {
			logger.Info("Running on Windows: ICMP probes always use privileged mode")
			cfg.PrivilegedPing = true
		}
	case osDarwin:
		logger.Info("Running on macOS: unprivileged ICMP probes are supported")
	case osLinux:
		if !cfg.PrivilegedPing {
			logger.Info("Running on Linux: unprivileged probes need net.ipv4.ping_group_range to include this group")
		}
	default:
		logger.Warn("Running on unsupported platform, some metrics may not work", "os", runtime.GOOS)
	}
}
