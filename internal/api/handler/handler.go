// Package handler provides HTTP handlers for the dataset API. Handlers read
// stored feature rows through RowReader and cache encoded responses.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-predict/internal/api/respond"
	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/store"
)

// RowReader is the read side of the feature row store.
type RowReader interface {
	Seasons(ctx context.Context) ([]store.SeasonSummary, error)
	Rows(ctx context.Context, season provider.Season) ([]features.Row, error)
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	rows   RowReader
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Handler with shared dependencies.
func New(rows RowReader, c *cache.Cache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{rows: rows, cache: c, logger: logger, now: time.Now}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"name":    "Scoracle Predict API",
		"version": "1.0.0",
		"status":  "running",
		"columns": features.Columns(true),
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.rows.Ping(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
