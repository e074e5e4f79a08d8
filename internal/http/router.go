package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// NewRouter wires the search service routes. limiter may be nil to disable
// rate limiting; requestTimeout applies to /cities only.
func NewRouter(h *Handler, limiter *rate.Limiter, requestTimeout time.Duration, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	citiesRouter := router.PathPrefix("/cities").Subrouter()
	citiesRouter.Use(RateLimitMiddleware(limiter, h.tracker))
	if requestTimeout > 0 {
		citiesRouter.Use(TimeoutMiddleware(requestTimeout))
	}
	citiesRouter.HandleFunc("/{query}", h.GetCities).Methods("GET")
	citiesRouter.HandleFunc("/", h.GetCities).Methods("GET")
	return router
}

// NewDashboardRouter wires the dashboard's read-only view.
func NewDashboardRouter(h *DashboardHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/cards", h.GetCards).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
	return router
}
