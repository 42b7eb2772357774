// Package httpapi exposes the service's HTTP surface: health, readiness,
// Prometheus metrics, and the read-only JSON endpoints the dashboard
// consumes.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/pipeline"
)

// FeedProvider supplies the latest cycle result and readiness state.
type FeedProvider interface {
	CheckReadiness(ctx context.Context) error
	Latest() pipeline.Result
}

// Server exposes health, readiness, metrics, and feed HTTP endpoints.
type Server struct {
	httpServer *http.Server
	provider   FeedProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /api/events, and /api/status routes.
func NewServer(addr string, provider FeedProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.provider.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	result := s.provider.Latest()
	events := result.Events
	if events == nil {
		events = []domain.QuakeEvent{} // serialize as [] rather than null
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":     events,
		"count":      len(result.Events),
		"updated_at": result.CompletedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	result := s.provider.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"alert_raised": result.AlertRaised,
		"new_alerts":   len(result.NewAlerts),
		"events":       len(result.Events),
		"updated_at":   result.CompletedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
