package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that label dimensions match their call sites
// across http, search, client, cache and dashboard packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/cities/{query}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/cities/{query}").Observe(0.01)
	CityQueriesTotal.WithLabelValues("match").Inc()
	CityQueryResults.Observe(3)
	CityIndexDuration.WithLabelValues("success").Observe(0.001)
	ProviderCallsTotal.WithLabelValues("weather", "success").Inc()
	ProviderDuration.WithLabelValues("geocode", "error").Observe(0.2)
	CacheLookupsTotal.WithLabelValues("hit").Inc()
	CacheErrorsTotal.WithLabelValues("get", "timeout").Inc()
	ForecastUpdatesTotal.WithLabelValues("network", "applied").Inc()
	LocateTotal.WithLabelValues("timeout").Inc()
	TrackedCities.Set(1)
}

// TestRegisterWindowGauges_Once verifies repeated registration does not panic
// and the gauges appear in the exposition.
func TestRegisterWindowGauges_Once(t *testing.T) {
	RegisterWindowGauges(func() int { return 7 }, func() int { return 2 })
	RegisterWindowGauges(func() int { return 0 }, func() int { return 0 })

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), "requestsInWindow 7") {
		t.Error("exposition should contain requestsInWindow from the first registration")
	}
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
