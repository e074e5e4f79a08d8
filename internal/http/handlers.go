package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// CitiesCacheControl is sent on every /cities response, errors included.
const CitiesCacheControl = "public, max-age=3600, s-maxage=6000"

// Searcher answers city prefix lookups.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// HealthConfig holds lifecycle thresholds and dependency probes for the health handler.
type HealthConfig struct {
	Thresholds lifecycle.Thresholds
	// CachePing, when set, is reported under checks.cache. Informational only.
	CachePing func() error
	// IndexPing, when set, degrades the service on failure.
	IndexPing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	searcher         Searcher
	tracker          *traffic.Tracker
	healthConfig     *HealthConfig
	logger           *zap.Logger
	maxQueryLength   int
	healthStatusMu   sync.Mutex
	healthStatusPrev lifecycle.Status
}

// NewHandler returns a new Handler. tracker may be nil.
func NewHandler(
	searcher Searcher,
	tracker *traffic.Tracker,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxQueryLength int,
) *Handler {
	return &Handler{
		searcher:       searcher,
		tracker:        tracker,
		healthConfig:   healthConfig,
		logger:         logger,
		maxQueryLength: maxQueryLength,
	}
}

// GetCities handles GET /cities/{query}. Queries that fail validation get an
// empty array; only index failures produce an error status.
func (h *Handler) GetCities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", CitiesCacheControl)

	query, err := validation.ValidateQuery(mux.Vars(r)["query"], h.maxQueryLength)
	if err != nil {
		if logger := requestLogger(r); logger != nil {
			logger.Debug("query rejected", zap.Error(err))
		}
		h.record(traffic.Success)
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	names, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		h.record(traffic.Failure)
		if logger := requestLogger(r); logger != nil {
			logger.Warn("city search failed", zap.String("query", query), zap.Error(err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.record(traffic.Success)
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) record(o traffic.Outcome) {
	if h.tracker != nil {
		h.tracker.Record(o)
	}
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	verdict, checks := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != verdict.Status {
		h.logger.Info("health status transition",
			zap.String("previous_status", string(prev)),
			zap.String("current_status", string(verdict.Status)),
			zap.String("reason", verdict.Reason))
	}
	h.healthStatusPrev = verdict.Status
	h.healthStatusMu.Unlock()

	statusCode := http.StatusOK
	if !verdict.Serving() {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":    verdict.Status,
		"service":   "weather-dashboard",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus combines the traffic verdict with the dependency probes.
// An unreachable index degrades an otherwise healthy service.
func (h *Handler) computeHealthStatus() (lifecycle.Verdict, map[string]string) {
	var th lifecycle.Thresholds
	if h.healthConfig != nil {
		th = h.healthConfig.Thresholds
	}
	verdict := lifecycle.Evaluate(h.tracker, th)

	checks := map[string]string{"search": "healthy"}
	if verdict.Reason == "error_rate_breach" {
		checks["search"] = "unhealthy"
	}
	if h.healthConfig == nil {
		return verdict, checks
	}
	if h.healthConfig.IndexPing != nil {
		if err := h.healthConfig.IndexPing(); err != nil {
			checks["cityIndex"] = "unhealthy"
			if verdict.Serving() {
				verdict = lifecycle.Verdict{Status: lifecycle.Degraded, Reason: "index_unavailable"}
			}
		} else {
			checks["cityIndex"] = "healthy"
		}
	}
	if h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	return verdict, checks
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID, _ := r.Context().Value("correlation_id").(string)
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// requestLogger returns the request-scoped logger set by CorrelationIDMiddleware.
func requestLogger(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return nil
}
