package http

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cityindex"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/search"
)

// setupBenchmarkRouter serves /cities from an in-memory index of n cities.
func setupBenchmarkRouter(n int) *httptest.Server {
	cities := make([]models.City, n)
	for i := range cities {
		cities[i] = models.City{ID: fmt.Sprint(i), Name: fmt.Sprintf("City %06d", i)}
	}
	h := NewHandler(search.NewService(cityindex.NewMemoryIndex(cities)), nil, nil, zap.NewNop(), 100)
	return httptest.NewServer(NewRouter(h, nil, 0, zap.NewNop()))
}

func BenchmarkGetCities(b *testing.B) {
	h := NewHandler(search.NewService(cityindex.NewMemoryIndex([]models.City{
		{ID: "1", Name: "Paris"}, {ID: "2", Name: "Park City"},
	})), nil, nil, zap.NewNop(), 100)
	router := NewRouter(h, nil, 0, zap.NewNop())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/cities/par", nil))
	}
}

func BenchmarkGetCities_LargeIndex(b *testing.B) {
	srv := setupBenchmarkRouter(100000)
	defer srv.Close()
	router := srv.Config.Handler

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/cities/city%2000", nil))
	}
}
