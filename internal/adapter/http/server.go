// Package http exposes the telemetry API plus health, readiness, and metrics
// endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/alert"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/auth"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/ingest"
)

const (
	headerDeviceID  = "X-Device-Id"
	headerSignature = "X-Signature"

	// maxBodyBytes caps ingest payloads; a single flat reading is well under
	// a kilobyte.
	maxBodyBytes = 64 << 10
)

// Service is the telemetry core consumed by the HTTP layer.
type Service interface {
	Ingest(ctx context.Context, deviceID, signature string, body []byte) (ingest.Result, error)
	Status() ingest.StatusView
	Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
	Acknowledge(id string) error
	CheckReadiness(ctx context.Context) error
}

// Server exposes the telemetry API over HTTP.
type Server struct {
	httpServer   *http.Server
	svc          Service
	logger       *slog.Logger
	historyLimit int
}

// NewServer creates an HTTP server with the API, health, readiness, and
// metrics routes. historyLimit is the default row count for history queries
// when the request does not specify one.
func NewServer(addr string, svc Service, historyLimit int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:          svc,
		logger:       logger,
		historyLimit: historyLimit,
	}

	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/alerts/{id}/ack", s.handleAcknowledge)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

// handleIngest accepts one signed reading. The body is read raw and passed
// to the service unparsed: the signature covers the exact wire bytes.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body unreadable or too large")
		return
	}

	res, err := s.svc.Ingest(r.Context(),
		r.Header.Get(headerDeviceID), r.Header.Get(headerSignature), body)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	resp := map[string]any{
		"ok":            true,
		"fireRiskIndex": res.FireRiskIndex,
	}
	if res.Alert != nil {
		resp["alert"] = res.Alert
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Acknowledge(id); err != nil {
		if errors.Is(err, alert.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown alert id")
			return
		}
		writeError(w, http.StatusInternalServerError, "acknowledge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeIngestError maps pipeline rejections onto the API contract: malformed
// requests are 400, failed authentication is 401, anything else is 500. The
// response never echoes signature material.
func (s *Server) writeIngestError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "missing device id or signature")
	case errors.Is(err, auth.ErrUnknownDevice), errors.Is(err, auth.ErrSignatureMismatch):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		s.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
