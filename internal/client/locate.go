package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Coords is a device position.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locator reports the current position. Implementations return
// ErrLocateTimeout when ctx expires before a position is known.
type Locator interface {
	Locate(ctx context.Context) (Coords, error)
}

// StaticLocator always reports the same position.
type StaticLocator struct {
	Coords Coords
}

// Locate implements Locator.
func (s StaticLocator) Locate(ctx context.Context) (Coords, error) {
	if err := ctx.Err(); err != nil {
		return Coords{}, locateErr(err)
	}
	return s.Coords, nil
}

// HTTPLocator asks an IP geolocation endpoint that answers
// {"latitude": .., "longitude": ..}.
type HTTPLocator struct {
	url    string
	client *http.Client
}

// NewHTTPLocator returns a locator for url. A nil hc uses a client without a timeout.
func NewHTTPLocator(url string, hc *http.Client) *HTTPLocator {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPLocator{url: url, client: hc}
}

// Locate implements Locator.
func (l *HTTPLocator) Locate(ctx context.Context) (Coords, error) {
	if l.url == "" {
		return Coords{}, errors.New("geolocation not available")
	}
	body, err := get(ctx, l.client, "locate", l.url)
	if err != nil {
		if ctx.Err() != nil {
			return Coords{}, locateErr(ctx.Err())
		}
		return Coords{}, fmt.Errorf("locate: %w", err)
	}
	var c Coords
	if err := json.Unmarshal(body, &c); err != nil {
		return Coords{}, fmt.Errorf("parse position: %w", err)
	}
	return c, nil
}

func locateErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLocateTimeout, err)
	}
	return err
}
