package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultGeocodeURL is the reverse geocoding endpoint.
const DefaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder resolves coordinates to a display city label.
type Geocoder interface {
	CityName(ctx context.Context, lat, lon float64) (string, error)
}

// AddressComponent is one part of a geocoding candidate.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Address is one geocoding candidate.
type Address struct {
	Types      []string           `json:"types"`
	Components []AddressComponent `json:"address_components"`
}

// GoogleGeocoder calls a Google-style reverse geocoding API.
type GoogleGeocoder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoogleGeocoder returns a geocoder. A nil hc uses a client without a timeout.
func NewGoogleGeocoder(baseURL, apiKey string, hc *http.Client) *GoogleGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocodeURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &GoogleGeocoder{baseURL: baseURL, apiKey: apiKey, client: hc}
}

type geocodeResponse struct {
	Status  string    `json:"status"`
	Results []Address `json:"results"`
}

// Addresses returns the candidates for a coordinate pair.
func (g *GoogleGeocoder) Addresses(ctx context.Context, lat, lon float64) ([]Address, error) {
	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	body, err := get(ctx, g.client, "geocode", g.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("geocode %v,%v: %w", lat, lon, err)
	}
	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse geocode: %w", err)
	}
	switch resp.Status {
	case "", "OK", "ZERO_RESULTS":
	case "REQUEST_DENIED":
		return nil, fmt.Errorf("%w: geocode status %s", ErrInvalidAPIKey, resp.Status)
	default:
		return nil, fmt.Errorf("%w: geocode status %s", ErrUpstreamFailure, resp.Status)
	}
	return resp.Results, nil
}

// CityName implements Geocoder.
func (g *GoogleGeocoder) CityName(ctx context.Context, lat, lon float64) (string, error) {
	addrs, err := g.Addresses(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	return ParseCityName(addrs)
}

// ParseCityName picks the first candidate that has both a locality and a
// first-level administrative area component and formats it as
// "<locality>, <area>" from the short names. Otherwise it returns ErrNoLocality.
func ParseCityName(addrs []Address) (string, error) {
	for _, a := range addrs {
		city, okCity := findComponent(a.Components, "locality")
		state, okState := findComponent(a.Components, "administrative_area_level_1")
		if okCity && okState {
			return city.ShortName + ", " + state.ShortName, nil
		}
	}
	return "", ErrNoLocality
}

// findComponent matches on a component's primary type.
func findComponent(components []AddressComponent, typ string) (AddressComponent, bool) {
	for _, c := range components {
		if len(c.Types) > 0 && c.Types[0] == typ {
			return c, true
		}
	}
	return AddressComponent{}, false
}
