package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PlaceResolver turns a display label into a location key.
type PlaceResolver interface {
	PlaceURL(label string) string
	Resolve(ctx context.Context, label string) (string, []byte, error)
}

// PlaceURL returns the lookup URL for label.
func (c *YQLClient) PlaceURL(label string) string {
	return c.statementURL(`select woeid from geo.places(1) where text="` + escapeStatement(label) + `"`)
}

// Resolve implements PlaceResolver. It returns the key and the raw body for caching.
func (c *YQLClient) Resolve(ctx context.Context, label string) (string, []byte, error) {
	body, err := get(ctx, c.client, "places", c.PlaceURL(label))
	if err != nil {
		return "", nil, fmt.Errorf("resolve %q: %w", label, err)
	}
	key, err := DecodePlace(body)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %q: %w", label, err)
	}
	return key, body, nil
}

type placeResponse struct {
	Query struct {
		Results *struct {
			Place struct {
				Woeid flexString `json:"woeid"`
			} `json:"place"`
		} `json:"results"`
	} `json:"query"`
}

// DecodePlace extracts the location key from a place lookup body.
func DecodePlace(body []byte) (string, error) {
	var resp placeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse place: %w", err)
	}
	if resp.Query.Results == nil || resp.Query.Results.Place.Woeid == "" {
		return "", ErrLocationNotFound
	}
	return string(resp.Query.Results.Place.Woeid), nil
}

// escapeStatement keeps a label from terminating the quoted statement literal.
func escapeStatement(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
