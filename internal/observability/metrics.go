package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limit denials on /cities.
	RateLimitDeniedTotal prometheus.Counter

	// Autocomplete lookups by outcome (match, empty, invalid, error).
	CityQueriesTotal *prometheus.CounterVec

	// Results returned per autocomplete lookup.
	CityQueryResults prometheus.Histogram

	// Index range scan latency. Watch for: p99 growth as the index grows.
	CityIndexDuration *prometheus.HistogramVec

	// Lookups that joined an identical scan already in flight.
	CityQueriesCoalescedTotal prometheus.Counter

	// Calls to external providers (weather, places, geocode, locate, autocomplete).
	ProviderCallsTotal *prometheus.CounterVec

	// External provider latency.
	ProviderDuration *prometheus.HistogramVec

	// Response cache hits and misses.
	CacheLookupsTotal *prometheus.CounterVec

	// Response cache failures by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Forecast updates seen by the dashboard (applied, stale, orphaned, failed).
	ForecastUpdatesTotal *prometheus.CounterVec

	// Cities currently tracked by the dashboard.
	TrackedCities prometheus.Gauge

	// Geolocation attempts by outcome (success, timeout, error).
	LocateTotal *prometheus.CounterVec

	windowGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CityQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityQueriesTotal",
			Help: "Autocomplete lookups by outcome",
		},
		[]string{"outcome"},
	)
	CityQueryResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cityQueryResults",
			Help:    "Number of names returned per autocomplete lookup",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)
	CityIndexDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cityIndexDurationSeconds",
			Help:    "City index range scan latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"status"},
	)
	CityQueriesCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityQueriesCoalescedTotal",
			Help: "Autocomplete lookups that shared an in-flight index scan",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of external provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerDurationSeconds",
			Help:    "External provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "status"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Response cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Response cache errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	ForecastUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastUpdatesTotal",
			Help: "Forecast updates by outcome (applied, stale, orphaned, failed)",
		},
		[]string{"source", "outcome"},
	)
	TrackedCities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackedCities",
			Help: "Cities currently tracked by the dashboard",
		},
	)
	LocateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locateTotal",
			Help: "Geolocation attempts by outcome",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RateLimitDeniedTotal,
		CityQueriesTotal, CityQueryResults, CityIndexDuration, CityQueriesCoalescedTotal,
		ProviderCallsTotal, ProviderDuration,
		CacheLookupsTotal, CacheErrorsTotal,
		ForecastUpdatesTotal, TrackedCities, LocateTotal,
	)
}

// RegisterWindowGauges exposes windowed request and denial counts. total and
// denied are read on every scrape. Only the first call registers.
func RegisterWindowGauges(total, denied func() int) {
	windowGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "requestsInWindow",
					Help: "Requests on the rate-limited path in the sliding window",
				},
				func() float64 { return float64(total()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in the sliding window",
				},
				func() float64 { return float64(denied()) },
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
