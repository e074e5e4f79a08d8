package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/cityindex"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/search"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger("service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	index, indexPing, err := openIndex(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("city index", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		Thresholds: lifecycle.Thresholds{
			DegradedWindow:       cfg.DegradedWindow,
			DegradedErrorPct:     cfg.DegradedErrorPct,
			OverloadWindow:       cfg.OverloadWindow,
			OverloadThresholdPct: cfg.OverloadThresholdPct,
			RateLimitRPS:         cfg.RateLimitRPS,
		},
		IndexPing: indexPing,
	}

	// memcached is shared with the dashboards; the service only probes it for /health.
	var memcacheCloser *cache.MemcachedCache
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		healthConfig.CachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	}

	window := cfg.OverloadWindow
	if cfg.DegradedWindow > window {
		window = cfg.DegradedWindow
	}
	tracker := traffic.NewTracker(window)
	observability.RegisterWindowGauges(
		func() int { return tracker.Total(cfg.OverloadWindow) },
		func() int { return tracker.Count(traffic.Denied, cfg.OverloadWindow) },
	)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httphandler.NewHandler(search.NewService(index), tracker, healthConfig, logger, cfg.QueryMaxLength)
	router := httphandler.NewRouter(handler, limiter, cfg.RequestTimeout, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("cities_backend", cfg.CitiesBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := index.Close(); err != nil {
		logger.Error("city index close", zap.Error(err))
	}
	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// openIndex opens the configured city index. An empty storm index is
// seeded from cities.seed_file when one is configured.
func openIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cityindex.Index, func() error, error) {
	switch cfg.CitiesBackend {
	case "memory":
		cities, err := readSeed(cfg.CitiesSeedFile)
		if err != nil {
			return nil, nil, err
		}
		idx := cityindex.NewMemoryIndex(cities)
		logger.Info("city index: memory", zap.Int("cities", idx.Len()))
		return idx, nil, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.CitiesPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create index directory: %w", err)
		}
		idx, err := cityindex.OpenStorm(cfg.CitiesPath)
		if err != nil {
			return nil, nil, err
		}
		n, err := idx.Count()
		if err != nil {
			_ = idx.Close()
			return nil, nil, fmt.Errorf("count cities: %w", err)
		}
		if n == 0 && cfg.CitiesSeedFile != "" {
			cities, err := readSeed(cfg.CitiesSeedFile)
			switch {
			case errors.Is(err, os.ErrNotExist):
				logger.Warn("city index is empty and seed file is missing", zap.String("seed_file", cfg.CitiesSeedFile))
			case err != nil:
				_ = idx.Close()
				return nil, nil, err
			default:
				if err := idx.Import(ctx, cities); err != nil {
					_ = idx.Close()
					return nil, nil, err
				}
				n = len(cities)
			}
		}
		logger.Info("city index: storm", zap.String("path", cfg.CitiesPath), zap.Int("cities", n))
		return idx, idx.Ping, nil
	}
}

func readSeed(path string) ([]models.City, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return cityindex.LoadSeed(f)
}
