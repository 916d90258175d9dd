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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration.
type Config struct {
	// Thresholds
	BandwidthThresholdMbps float64 // Upload/download rate that raises an alert
	CPUThreshold           float64 // CPU usage percentage
	MemoryThreshold        float64 // Memory usage percentage
	DiskThreshold          float64 // Disk usage percentage

	// Polling
	NetworkInterval  time.Duration // Bandwidth sampling interval
	SystemInterval   time.Duration // CPU/memory/disk sampling interval
	DeviceInterval   time.Duration // Reachability probe interval
	PingTimeout      time.Duration // Upper bound for one probe
	PrivilegedPing   bool          // Use raw ICMP sockets instead of UDP pings
	MonitoredDevices []string      // Hosts to probe
	DiskPath         string        // Filesystem whose usage is sampled

	// Network interface filters
	IncludeInterfaces []string // Interfaces to count (empty = all)
	ExcludeInterfaces []string // Interfaces to skip

	// Alerts
	AlertCooldown   time.Duration // Minimum gap between two sends of one alert type
	MaxActiveAlerts int           // In-memory alert log capacity
	AlertJournal    string        // CSV file receiving every alert (empty = disabled)

	// Storage
	DataDir    string // Directory holding the datasets
	Backend    string // json or sqlite
	MaxRecords int    // Per-dataset retention cap

	// Email notifications
	SMTPServer      string
	SMTPPort        int
	EmailUser       string
	EmailPassword   string
	AlertRecipients []string

	// Telegram notifications
	TelegramToken  string
	TelegramChatID string

	// HTTP API
	APIAddr   string // Listen address (empty = disabled)
	APISecret string // HMAC key for bearer tokens (empty = no auth)

	ShutdownTimeout time.Duration // Bound on joining the polling loops
	Timezone        string        // Timezone for exported timestamps

	// Logging
	LogLevel string // Log level: debug, info, warn, error
	LogFile  string // Log file path (empty = stdout)
}

// Default configuration values.
const (
	DefaultBandwidthThresholdMbps = 100.0
	DefaultCPUThreshold           = 80.0
	DefaultMemoryThreshold        = 85.0
	DefaultDiskThreshold          = 90.0
	DefaultNetworkInterval        = 30 * time.Second
	DefaultSystemInterval         = 60 * time.Second
	DefaultDeviceInterval         = 120 * time.Second
	DefaultPingTimeout            = 5 * time.Second
	DefaultMonitoredDevices       = "8.8.8.8,1.1.1.1"
	DefaultDiskPath               = "/"
	DefaultAlertCooldown          = 15 * time.Minute
	DefaultMaxActiveAlerts        = 1000
	DefaultDataDir                = "data"
	DefaultBackend                = BackendJSON
	DefaultMaxRecords             = 10000
	DefaultSMTPServer             = "smtp.gmail.com"
	DefaultSMTPPort               = 587
	DefaultShutdownTimeout        = 5 * time.Second
	DefaultLogLevel               = "info"
	DefaultTimezone               = "Local"
)

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		BandwidthThresholdMbps: DefaultBandwidthThresholdMbps,
		CPUThreshold:           DefaultCPUThreshold,
		MemoryThreshold:        DefaultMemoryThreshold,
		DiskThreshold:          DefaultDiskThreshold,
		NetworkInterval:        DefaultNetworkInterval,
		SystemInterval:         DefaultSystemInterval,
		DeviceInterval:         DefaultDeviceInterval,
		PingTimeout:            DefaultPingTimeout,
		MonitoredDevices:       ParseCommaSeparated(DefaultMonitoredDevices),
		DiskPath:               DefaultDiskPath,
		AlertCooldown:          DefaultAlertCooldown,
		MaxActiveAlerts:        DefaultMaxActiveAlerts,
		DataDir:                DefaultDataDir,
		Backend:                DefaultBackend,
		MaxRecords:             DefaultMaxRecords,
		SMTPServer:             DefaultSMTPServer,
		SMTPPort:               DefaultSMTPPort,
		ShutdownTimeout:        DefaultShutdownTimeout,
		LogLevel:               DefaultLogLevel,
		Timezone:               DefaultTimezone,
	}
}

// FromEnv returns the defaults overridden by environment variables.
// Interval variables are whole seconds, the cooldown is whole minutes.
func FromEnv() *Config {
	c := Default()

	c.BandwidthThresholdMbps = getenvFloat("BANDWIDTH_THRESHOLD_MBPS", c.BandwidthThresholdMbps)
	c.CPUThreshold = getenvFloat("CPU_THRESHOLD_PERCENT", c.CPUThreshold)
	c.MemoryThreshold = getenvFloat("MEMORY_THRESHOLD_PERCENT", c.MemoryThreshold)
	c.DiskThreshold = getenvFloat("DISK_THRESHOLD_PERCENT", c.DiskThreshold)

	c.NetworkInterval = getenvUnits("NETWORK_CHECK_INTERVAL", time.Second, c.NetworkInterval)
	c.SystemInterval = getenvUnits("SYSTEM_CHECK_INTERVAL", time.Second, c.SystemInterval)
	c.DeviceInterval = getenvUnits("DEVICE_PING_INTERVAL", time.Second, c.DeviceInterval)
	c.PingTimeout = getenvUnits("PING_TIMEOUT_SECONDS", time.Second, c.PingTimeout)
	c.PrivilegedPing = getenvBool("PING_PRIVILEGED", c.PrivilegedPing)
	if v := os.Getenv("MONITORED_DEVICES"); v != "" {
		c.MonitoredDevices = ParseCommaSeparated(v)
	}
	c.DiskPath = getenv("DISK_PATH", c.DiskPath)
	c.IncludeInterfaces = ParseCommaSeparated(os.Getenv("INCLUDE_INTERFACES"))
	c.ExcludeInterfaces = ParseCommaSeparated(os.Getenv("EXCLUDE_INTERFACES"))

	c.AlertCooldown = getenvUnits("ALERT_COOLDOWN_MINUTES", time.Minute, c.AlertCooldown)
	c.MaxActiveAlerts = getenvInt("MAX_ACTIVE_ALERTS", c.MaxActiveAlerts)
	c.AlertJournal = getenv("ALERT_JOURNAL", c.AlertJournal)

	c.DataDir = getenv("DATA_DIR", c.DataDir)
	c.Backend = getenv("STORAGE_BACKEND", c.Backend)
	c.MaxRecords = getenvInt("MAX_RECORDS", c.MaxRecords)

	c.SMTPServer = getenv("SMTP_SERVER", c.SMTPServer)
	c.SMTPPort = getenvInt("SMTP_PORT", c.SMTPPort)
	c.EmailUser = getenv("EMAIL_USER", c.EmailUser)
	c.EmailPassword = getenv("EMAIL_PASSWORD", c.EmailPassword)
	c.AlertRecipients = ParseCommaSeparated(os.Getenv("ALERT_RECIPIENTS"))

	c.TelegramToken = getenv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.TelegramChatID = getenv("TELEGRAM_CHAT_ID", c.TelegramChatID)

	c.APIAddr = getenv("API_ADDR", c.APIAddr)
	c.APISecret = getenv("API_SECRET", c.APISecret)

	c.LogLevel = strings.ToLower(getenv("LOG_LEVEL", c.LogLevel))
	c.LogFile = getenv("LOG_FILE", c.LogFile)
	c.Timezone = getenv("TZ_NAME", c.Timezone)

	return c
}

// ParseCommaSeparated parses a comma-separated string into a slice of trimmed strings.
func ParseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// EmailEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) EmailEnabled() bool {
	return c.EmailUser != "" && c.EmailPassword != "" && len(c.AlertRecipients) > 0
}

// TelegramEnabled reports whether the Telegram bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BandwidthThresholdMbps <= 0 {
		return errors.New("bandwidth threshold must be positive")
	}

	for name, v := range map[string]float64{
		"cpu":    c.CPUThreshold,
		"memory": c.MemoryThreshold,
		"disk":   c.DiskThreshold,
	} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%s threshold must be in (0, 100], got %v", name, v)
		}
	}

	for name, v := range map[string]time.Duration{
		"network": c.NetworkInterval,
		"system":  c.SystemInterval,
		"device":  c.DeviceInterval,
	} {
		if v < 1*time.Second {
			return fmt.Errorf("%s interval must be at least 1 second", name)
		}
		if v > 24*time.Hour {
			return fmt.Errorf("%s interval must not exceed 24 hours", name)
		}
	}

	if c.PingTimeout < 100*time.Millisecond {
		return errors.New("ping timeout must be at least 100ms")
	}

	if c.AlertCooldown < 0 {
		return errors.New("alert cooldown cannot be negative")
	}

	if c.MaxActiveAlerts < 1 {
		return errors.New("max active alerts must be at least 1")
	}

	if c.MaxRecords < 1 {
		return errors.New("max records must be at least 1")
	}

	if c.DataDir == "" {
		return errors.New("data directory cannot be empty")
	}

	if c.Backend != BackendJSON && c.Backend != BackendSQLite {
		return fmt.Errorf("invalid storage backend: %s (must be %s or %s)", c.Backend, BackendJSON, BackendSQLite)
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", c.SMTPPort)
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// String returns a human-readable representation of the configuration.
// Secrets are never included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Bandwidth=%gMbps, CPU=%g%%, Memory=%g%%, Disk=%g%%, Intervals=%v/%v/%v, "+
		"PingTimeout=%v, Cooldown=%v, Devices=%v, Backend=%s, DataDir=%s, MaxRecords=%d, Email=%t, Telegram=%t, API=%q}",
		c.BandwidthThresholdMbps, c.CPUThreshold, c.MemoryThreshold, c.DiskThreshold,
		c.NetworkInterval, c.SystemInterval, c.DeviceInterval,
		c.PingTimeout, c.AlertCooldown, c.MonitoredDevices, c.Backend, c.DataDir, c.MaxRecords,
		c.EmailEnabled(), c.TelegramEnabled(), c.APIAddr)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d
	}
	return f
}

// getenvUnits reads an integer count of unit. Go duration strings are accepted too.
func getenvUnits(k string, unit, d time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * unit
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func getenvBool(k string, d bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return d
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	return d
}
