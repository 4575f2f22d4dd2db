package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/areajoin/internal/web/middleware"
)

// Config carries the server settings handlers need (kept separate from the
// web package to avoid an import cycle).
type Config struct {
	MaxBodyBytes int64
	Workers      int
	Blocking     bool
	NullMarker   string
	Debug        bool
}

// APIHandler handles general API endpoints
type APIHandler struct {
	Config  *Config
	Logger  *zap.Logger
	Started time.Time
}

// HealthResponse reports server liveness
type HealthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health reports that the server is up
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.Started).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
