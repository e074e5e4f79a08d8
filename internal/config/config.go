package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the search service and the dashboard,
// loaded from YAML and env.
type Config struct {
	ServerPort     string
	RequestTimeout time.Duration

	CitiesBackend  string // "storm" or "memory"
	CitiesPath     string
	CitiesSeedFile string
	QueryMaxLength int

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow       time.Duration
	DegradedErrorPct     int
	OverloadWindow       time.Duration
	OverloadThresholdPct int

	Dashboard DashboardConfig
}

// DashboardConfig configures the dashboard client.
type DashboardConfig struct {
	StorePath       string
	ListenPort      string
	QueryURL        string
	GeocodeURL      string
	GeocodeAPIKey   string
	LocateURL       string
	AutocompleteURL string
	// LocateTimeout bounds the device position lookup; on expiry the user is
	// nudged to enter a city manually.
	LocateTimeout   time.Duration
	CallTimeout     time.Duration
	RefreshInterval time.Duration // 0 disables periodic refresh
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cities struct {
		Backend        string `yaml:"backend"`
		Path           string `yaml:"path"`
		SeedFile       string `yaml:"seed_file"`
		QueryMaxLength int    `yaml:"query_max_length"`
	} `yaml:"cities"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
	} `yaml:"lifecycle"`

	Dashboard struct {
		StorePath       string `yaml:"store_path"`
		ListenPort      string `yaml:"listen_port"`
		QueryURL        string `yaml:"query_url"`
		GeocodeURL      string `yaml:"geocode_url"`
		LocateURL       string `yaml:"locate_url"`
		AutocompleteURL string `yaml:"autocomplete_url"`
		LocateTimeout   string `yaml:"locate_timeout"`
		CallTimeout     string `yaml:"call_timeout"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"dashboard"`
}

type secretsFile struct {
	GeocodeAPIKey string `yaml:"geocode_api_key"`
}

// envOverrides are applied after the YAML file; empty values leave the file
// setting in place.
type envOverrides struct {
	Port               string `env:"PORT"`
	CitiesBackend      string `env:"CITIES_BACKEND"`
	CitiesPath         string `env:"CITIES_PATH"`
	CacheBackend       string `env:"CACHE_BACKEND"`
	MemcachedAddrs     string `env:"MEMCACHED_ADDRS"`
	GeocodeAPIKey      string `env:"GEOCODE_API_KEY"`
	DashboardStorePath string `env:"DASHBOARD_STORE_PATH"`
	AutocompleteURL    string `env:"AUTOCOMPLETE_URL"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) under the
// working directory, or under CONFIG_DIR when set.
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "config")
	}
	return LoadFrom(dir)
}

// LoadFrom reads {ENV_NAME}.yaml and the optional secrets.yaml from dir.
func LoadFrom(dir string) (*Config, error) {
	envName := os.Getenv("ENV_NAME")
	if envName == "" {
		envName = "dev"
	}

	configPath := filepath.Join(dir, envName+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(ov.Port, fc.Server.Port, "8080")
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.CitiesBackend = normalizeEnum(firstNonEmpty(ov.CitiesBackend, fc.Cities.Backend, "storm"))
	cfg.CitiesPath = firstNonEmpty(ov.CitiesPath, fc.Cities.Path, "data/cities.db")
	cfg.CitiesSeedFile = strings.TrimSpace(fc.Cities.SeedFile)
	cfg.QueryMaxLength = fc.Cities.QueryMaxLength
	if cfg.QueryMaxLength <= 0 {
		cfg.QueryMaxLength = 100
	}

	cfg.CacheBackend = normalizeEnum(firstNonEmpty(ov.CacheBackend, fc.Cache.Backend, "in_memory"))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 24*time.Hour)
	cfg.MemcachedAddrs = firstNonEmpty(ov.MemcachedAddrs, fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 5
	}
	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}

	d := &cfg.Dashboard
	d.StorePath = firstNonEmpty(ov.DashboardStorePath, fc.Dashboard.StorePath, "data/dashboard.db")
	d.ListenPort = firstNonEmpty(fc.Dashboard.ListenPort, "8081")
	d.QueryURL = strings.TrimSpace(fc.Dashboard.QueryURL)
	d.GeocodeURL = strings.TrimSpace(fc.Dashboard.GeocodeURL)
	d.LocateURL = strings.TrimSpace(fc.Dashboard.LocateURL)
	d.AutocompleteURL = firstNonEmpty(ov.AutocompleteURL, fc.Dashboard.AutocompleteURL, "http://localhost:"+cfg.ServerPort)
	d.LocateTimeout = parseDuration(fc.Dashboard.LocateTimeout, 10*time.Second)
	d.CallTimeout = parseDuration(fc.Dashboard.CallTimeout, 5*time.Second)
	d.RefreshInterval = parseDurationOrZero(fc.Dashboard.RefreshInterval, 0)

	d.GeocodeAPIKey = strings.TrimSpace(ov.GeocodeAPIKey)
	if d.GeocodeAPIKey == "" {
		key, err := readSecrets(dir)
		if err != nil {
			return nil, err
		}
		d.GeocodeAPIKey = key
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readSecrets returns the geocoding key from secrets.yaml; a missing file is not an error.
func readSecrets(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.GeocodeAPIKey), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func validate(cfg *Config) error {
	switch cfg.CitiesBackend {
	case "storm", "memory":
	default:
		return fmt.Errorf("cities.backend must be storm or memory, got %q", cfg.CitiesBackend)
	}
	if cfg.CitiesBackend == "memory" && cfg.CitiesSeedFile == "" {
		return fmt.Errorf("cities.seed_file is required for the memory backend")
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("lifecycle.degraded_error_pct must be <= 100, got %d", cfg.DegradedErrorPct)
	}
	if cfg.OverloadThresholdPct > 100 {
		return fmt.Errorf("lifecycle.overload_threshold_pct must be <= 100, got %d", cfg.OverloadThresholdPct)
	}
	if cfg.Dashboard.RefreshInterval < 0 {
		return fmt.Errorf("dashboard.refresh_interval must not be negative")
	}
	return nil
}
