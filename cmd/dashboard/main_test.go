package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeYQL answers place lookups with woeid 615702 and forecasts for any woeid.
func fakeYQL(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(q, "geo.places"):
			fmt.Fprint(w, `{"query":{"results":{"place":{"woeid":"615702"}}}}`)
		case strings.Contains(q, "weather.forecast"):
			fmt.Fprint(w, `{"query":{"created":"2026-01-01T12:00:00Z","results":{"channel":{
				"atmosphere":{"humidity":"40"},
				"item":{"condition":{"text":"Sunny","temp":"61","code":"32"},
				"forecast":[{"code":"32","high":"64","low":"50"}]}}}}}`)
		default:
			http.Error(w, "bad statement", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, queryURL, autocompleteURL string) string {
	t.Helper()
	return writeDashboardConfig(t, map[string]string{
		"query_url":        queryURL,
		"autocomplete_url": autocompleteURL,
	})
}

// writeDashboardConfig writes a dev.yaml whose dashboard section has a temp
// store, short timeouts and the given overrides.
func writeDashboardConfig(t *testing.T, fields map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	section := map[string]string{
		"store_path":     filepath.Join(dir, "data", "dashboard.db"),
		"locate_timeout": "1s",
		"call_timeout":   "2s",
	}
	for k, v := range fields {
		section[k] = v
	}
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("dashboard:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %q\n", k, section[k])
	}
	if err := os.WriteFile(filepath.Join(dir, "dev.yaml"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ENV_NAME", "dev")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("DASHBOARD_STORE_PATH", "")
	t.Setenv("AUTOCOMPLETE_URL", "")
	t.Setenv("GEOCODE_API_KEY", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(zap.NewNop())
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList_EmptyStoreShowsDefaultCity(t *testing.T) {
	dir := writeConfig(t, fakeYQL(t).URL, "http://127.0.0.1:0")

	out, err := execute(t, "list", "--config-dir", dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var v view
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if v.Phase != "populated" {
		t.Errorf("phase = %q, want populated", v.Phase)
	}
	if len(v.Cities) != 1 || v.Cities[0].Key != "2459115" {
		t.Errorf("cities = %+v, want the default city", v.Cities)
	}
	if len(v.Cards) != 1 || v.Cards[0].Label != "New York, NY" {
		t.Errorf("cards = %+v, want one New York card", v.Cards)
	}
}

func TestAddThenRemove_PersistsAcrossRuns(t *testing.T) {
	dir := writeConfig(t, fakeYQL(t).URL, "http://127.0.0.1:0")

	if _, err := execute(t, "add", "Paris,", "FR", "--config-dir", dir); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := execute(t, "list", "--config-dir", dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var v view
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(v.Cities) != 2 || v.Cities[1].Key != "615702" || v.Cities[1].Label != "Paris, FR" {
		t.Fatalf("cities after add = %+v", v.Cities)
	}

	if _, err := execute(t, "remove", "615702", "--config-dir", dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, err = execute(t, "list", "--config-dir", dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	v = view{}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(v.Cities) != 1 || v.Cities[0].Key != "2459115" {
		t.Errorf("cities after remove = %+v", v.Cities)
	}
}

func TestSuggest_PrintsNames(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cities/par" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `["Paris, FR","Parma, IT"]`)
	}))
	defer search.Close()
	dir := writeConfig(t, "http://127.0.0.1:0", search.URL)

	out, err := execute(t, "suggest", "par", "--config-dir", dir)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if out != "Paris, FR\nParma, IT\n" {
		t.Errorf("output = %q", out)
	}
}

func TestLocate_RequiresBothCoordinates(t *testing.T) {
	dir := writeConfig(t, "http://127.0.0.1:0", "http://127.0.0.1:0")
	if _, err := execute(t, "locate", "--lat", "40.7", "--config-dir", dir); err == nil {
		t.Fatal("expected error for --lat without --lon")
	}
}

// TestLocate_WaitsForLocateTimeout verifies a geolocation answer slower than
// call_timeout but within locate_timeout still selects the city.
func TestLocate_WaitsForLocateTimeout(t *testing.T) {
	locate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, `{"latitude":40.71,"longitude":-74.0}`)
	}))
	defer locate.Close()
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[{"address_components":[
			{"long_name":"New York","short_name":"New York","types":["locality","political"]},
			{"long_name":"New York","short_name":"NY","types":["administrative_area_level_1","political"]}]}]}`)
	}))
	defer geocode.Close()

	dir := writeDashboardConfig(t, map[string]string{
		"query_url":      fakeYQL(t).URL,
		"locate_url":     locate.URL,
		"geocode_url":    geocode.URL,
		"locate_timeout": "2s",
		"call_timeout":   "100ms",
	})

	out, err := execute(t, "locate", "--config-dir", dir)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if out != "New York, NY\n" {
		t.Errorf("output = %q, want the located city", out)
	}
}
