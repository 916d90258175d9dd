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

// Package server exposes stored history, alerts and monitor status over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/phuonguno98/netsentinel/internal/alert"
	"github.com/phuonguno98/netsentinel/internal/monitor"
	"github.com/phuonguno98/netsentinel/internal/storage"
	"github.com/phuonguno98/netsentinel/pkg/metrics"
	"github.com/phuonguno98/netsentinel/pkg/version"
	"github.com/phuonguno98/netsentinel/web"
)

const (
	// DefaultHours is the query window when no hours parameter is given.
	DefaultHours = 24.0
	// MaxHours caps the query window at 90 days.
	MaxHours = 90 * 24.0
)

// History reads persisted datasets.
type History interface {
	NetworkHistory(ctx context.Context, window time.Duration) ([]metrics.NetworkSample, error)
	SystemHistory(ctx context.Context, window time.Duration) ([]metrics.SystemSample, error)
	DeviceHistory(ctx context.Context, host string, window time.Duration) ([]metrics.DeviceStatus, error)
	AlertHistory(ctx context.Context, window time.Duration) ([]metrics.Alert, error)
	Export(ctx context.Context, window time.Duration) (*storage.ExportBundle, error)
}

// Alerts exposes the in-memory alert log.
type Alerts interface {
	Active() []metrics.Alert
	Summary() alert.Summary
	Subscribe(buffer int) (<-chan metrics.Alert, func())
}

// StatusSource reports live monitor status.
type StatusSource interface {
	Status() monitor.Status
}

// Options wires the server to its data sources. Status and Auth are optional.
type Options struct {
	History History
	Alerts  Alerts
	Status  StatusSource
	Auth    *Authenticator
	Logger  *slog.Logger
}

// Server is the read-only HTTP API.
type Server struct {
	history History
	alerts  Alerts
	status  StatusSource
	auth    *Authenticator
	logger  *slog.Logger
	router  *mux.Router
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		history: opts.History,
		alerts:  opts.Alerts,
		status:  opts.Status,
		auth:    opts.Auth,
		logger:  opts.Logger.With("component", "api"),
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Add CORS middleware
	s.router.Use(corsMiddleware)
	// Add logging middleware
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/version", s.handleGetVersion).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/history/{dataset}", s.handleHistory).Methods("GET")
	api.HandleFunc("/alerts/active", s.handleActiveAlerts).Methods("GET")
	api.HandleFunc("/alerts/summary", s.handleAlertSummary).Methods("GET")
	api.HandleFunc("/export", s.handleExport).Methods("GET")
	api.HandleFunc("/ws/alerts", s.handleAlertStream).Methods("GET")

	// Dashboard from embedded FS
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	staticFS, err := fs.Sub(web.Assets, "static")
	if err != nil {
		s.logger.Error("Failed to get static assets", "error", err)
		return
	}
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", s.staticFileHandler(staticFS)))
}

// staticFileHandler serves static files without caching.
func (s *Server) staticFileHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}

// handleIndex serves the dashboard page. The page itself is public; its
// API calls carry the token.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	indexFile, err := web.Assets.Open("index.html")
	if err != nil {
		s.logger.Error("Failed to open index.html", "error", err)
		http.Error(w, "Internal Server Error: index.html not found", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := indexFile.Close(); err != nil {
			s.logger.Warn("Failed to close index.html", "error", err)
		}
	}()

	if _, err := io.Copy(w, indexFile); err != nil {
		s.logger.Error("Failed to serve index.html", "error", err)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully within timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr, "auth", s.auth != nil)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// handleGetVersion returns version information from the version package.
func (s *Server) handleGetVersion(w http.ResponseWriter, _ *http.Request) {
	versionInfo := map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	}
	s.writeJSON(w, versionInfo)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		s.writeError(w, "monitor is not running in this process", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.status.Status())
}

// parseWindow reads the hours query parameter.
func parseWindow(r *http.Request) (time.Duration, float64, error) {
	hours := DefaultHours
	if v := r.URL.Query().Get("hours"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(h) || h <= 0 || h > MaxHours {
			return 0, 0, fmt.Errorf("hours must be a number in (0, %g]", MaxHours)
		}
		hours = h
	}
	return time.Duration(hours * float64(time.Hour)), hours, nil
}

// handleHistory returns one dataset for the requested window, oldest first.
// The device dataset accepts an optional host filter.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ds, err := storage.ParseDataset(mux.Vars(r)["dataset"])
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	window, hours, err := parseWindow(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var (
		records interface{}
		count   int
	)
	switch ds {
	case storage.DatasetNetwork:
		recs, qerr := s.history.NetworkHistory(ctx, window)
		records, count, err = recs, len(recs), qerr
	case storage.DatasetSystem:
		recs, qerr := s.history.SystemHistory(ctx, window)
		records, count, err = recs, len(recs), qerr
	case storage.DatasetDevice:
		recs, qerr := s.history.DeviceHistory(ctx, r.URL.Query().Get("host"), window)
		records, count, err = recs, len(recs), qerr
	case storage.DatasetAlert:
		recs, qerr := s.history.AlertHistory(ctx, window)
		records, count, err = recs, len(recs), qerr
	}
	if err != nil {
		s.logger.Error("History query failed", "dataset", ds, "error", err)
		s.writeError(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"dataset": ds,
		"hours":   hours,
		"count":   count,
		"records": records,
	})
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.alerts.Active())
}

func (s *Server) handleAlertSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.alerts.Summary())
}

// handleExport returns every dataset for the window as one bundle.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	window, hours, err := parseWindow(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bundle, err := s.history.Export(r.Context(), window)
	if err != nil {
		s.logger.Error("Export failed", "error", err)
		s.writeError(w, "failed to export data", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("network_data_%s_%gh.json", time.Now().Format("20060102_150405"), hours)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	s.writeJSON(w, bundle)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		s.logger.Error("Failed to write error response", "error", err)
	}
}
