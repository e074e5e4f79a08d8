package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	ctrl   *dashboard.Controller

	closers []func() error
}

// newApp wires a controller from cfg. locator overrides the configured
// geolocation endpoint when non-nil.
func newApp(cfg *config.Config, logger *zap.Logger, locator client.Locator) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	dir := filepath.Dir(cfg.Dashboard.StorePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	store, err := dashboard.OpenStormStore(cfg.Dashboard.StorePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	respCache, err := a.openCache()
	if err != nil {
		a.close()
		return nil, err
	}

	// Forecast, geocoding and geolocation calls are bounded by the caller's
	// context only; UseMyLocation applies the locate timeout.
	yql, err := client.NewYQLClient(cfg.Dashboard.QueryURL, &http.Client{})
	if err != nil {
		a.close()
		return nil, err
	}
	geocoder := client.NewGoogleGeocoder(cfg.Dashboard.GeocodeURL, cfg.Dashboard.GeocodeAPIKey, &http.Client{})
	if locator == nil && cfg.Dashboard.LocateURL != "" {
		locator = client.NewHTTPLocator(cfg.Dashboard.LocateURL, &http.Client{})
	}

	opts := dashboard.Options{
		Weather:       yql,
		Places:        yql,
		Geocoder:      geocoder,
		Locator:       locator,
		Cache:         respCache,
		Store:         store,
		CacheTTL:      cfg.CacheTTL,
		LocateTimeout: cfg.Dashboard.LocateTimeout,
		Logger:        logger,
	}
	ctrl, err := dashboard.NewController(opts)
	if err != nil {
		a.close()
		return nil, err
	}
	a.ctrl = ctrl
	a.closers = append(a.closers, func() error { ctrl.Close(); return nil })
	return a, nil
}

func (a *app) openCache() (cache.Cache, error) {
	switch a.cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(a.cfg.MemcachedAddrs, a.cfg.MemcachedTimeout, a.cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		a.closers = append(a.closers, mc.Close)
		a.logger.Debug("cache backend: memcached", zap.String("addrs", a.cfg.MemcachedAddrs))
		return mc, nil
	default:
		return cache.NewInMemoryCache(), nil
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
}
