package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalEnvYAML = `server:
  port: "8080"
cities:
  backend: storm
  path: data/cities.db
cache:
  backend: in_memory
  ttl: 1h
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// clearEnv unsets the variables Load consults for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENV_NAME", "CONFIG_DIR", "PORT", "CITIES_BACKEND", "CITIES_PATH",
		"CACHE_BACKEND", "MEMCACHED_ADDRS", "GEOCODE_API_KEY", "DASHBOARD_STORE_PATH", "AUTOCOMPLETE_URL"} {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies a minimal file yields the documented defaults.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.QueryMaxLength != 100 {
		t.Errorf("QueryMaxLength = %d, want 100", cfg.QueryMaxLength)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.Dashboard.LocateTimeout != 10*time.Second {
		t.Errorf("LocateTimeout = %v, want 10s", cfg.Dashboard.LocateTimeout)
	}
	if cfg.Dashboard.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %v, want 0", cfg.Dashboard.RefreshInterval)
	}
	if cfg.Dashboard.AutocompleteURL != "http://localhost:8080" {
		t.Errorf("AutocompleteURL = %q", cfg.Dashboard.AutocompleteURL)
	}
	if cfg.Dashboard.GeocodeAPIKey != "" {
		t.Errorf("GeocodeAPIKey = %q, want empty without secrets", cfg.Dashboard.GeocodeAPIKey)
	}
}

// TestLoad_SucceedsWithSecretsFile verifies the geocoding key is read from secrets.yaml.
func TestLoad_SucceedsWithSecretsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "geocode_api_key: from-file\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Dashboard.GeocodeAPIKey != "from-file" {
		t.Errorf("GeocodeAPIKey = %q, want from-file", cfg.Dashboard.GeocodeAPIKey)
	}
}

// TestLoad_SucceedsWithEnvVar verifies environment overrides win over the file and secrets.
func TestLoad_SucceedsWithEnvVar(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "geocode_api_key: from-file\n")
	t.Setenv("GEOCODE_API_KEY", "from-env")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_BACKEND", "MEMCACHED")
	t.Setenv("MEMCACHED_ADDRS", "cache-1:11211,cache-2:11211")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Dashboard.GeocodeAPIKey != "from-env" {
		t.Errorf("GeocodeAPIKey = %q, want from-env", cfg.Dashboard.GeocodeAPIKey)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want memcached", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "cache-1:11211,cache-2:11211" {
		t.Errorf("MemcachedAddrs = %q", cfg.MemcachedAddrs)
	}
}

// TestLoad_EnvFileNotFound verifies a missing environment file is reported with its path.
func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_NAME", "staging")
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)

	_, err := LoadFrom(dir)
	if err == nil {
		t.Fatal("expected error for missing staging.yaml")
	}
	if !strings.Contains(err.Error(), "staging.yaml") {
		t.Errorf("error %q does not name the file", err)
	}
}

// TestLoad_FromConfigDir verifies Load honours CONFIG_DIR.
func TestLoad_FromConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	t.Setenv("CONFIG_DIR", dir)

	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

// TestLoad_EmptyDurationFallsBackToDefault verifies empty durations use defaults.
func TestLoad_EmptyDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML+"request:\n  timeout: \"\"\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

// TestLoad_InvalidDurationFallsBackToDefault verifies unparseable durations use defaults.
func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML+"dashboard:\n  locate_timeout: soon\n  refresh_interval: often\n")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Dashboard.LocateTimeout != 10*time.Second {
		t.Errorf("LocateTimeout = %v, want 10s", cfg.Dashboard.LocateTimeout)
	}
	if cfg.Dashboard.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %v, want 0", cfg.Dashboard.RefreshInterval)
	}
}

// TestLoad_InvalidSecretsYAML verifies a malformed secrets file fails Load.
func TestLoad_InvalidSecretsYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "geocode_api_key: [unclosed\n")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected error for invalid secrets YAML")
	}
}

// TestLoad_InvalidConfigYAML verifies a malformed environment file fails Load.
func TestLoad_InvalidConfigYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "server: [unclosed\n")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected error for invalid config YAML")
	}
}

// TestLoad_Validation verifies enum and range checks.
func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		extra string
	}{
		{"unknown cache backend", "cache:\n  backend: redis\n"},
		{"unknown cities backend", "cities:\n  backend: sqlite\n"},
		{"memory backend without seed", "cities:\n  backend: memory\n"},
		{"error pct over 100", "lifecycle:\n  degraded_error_pct: 150\n"},
		{"negative refresh", "dashboard:\n  refresh_interval: -1m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeEnvFile(t, dir, "server:\n  port: \"8080\"\n"+tt.extra)
			if _, err := LoadFrom(dir); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
