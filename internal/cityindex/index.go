// Package cityindex holds the read-only city-name index behind the
// autocomplete endpoint. Names are ordered bytewise so a prefix query is a
// single range scan.
package cityindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Index answers inclusive range queries over city names.
type Index interface {
	// Range returns up to limit names n with start <= n <= end, in index order.
	// An empty result is not an error.
	Range(ctx context.Context, start, end string, limit int) ([]string, error)
	Close() error
}

// ErrEmptySeed is returned by LoadSeed when the export holds no cities.
var ErrEmptySeed = errors.New("seed contains no cities")

type seedFile struct {
	Cities map[string]string `json:"cities"`
}

// LoadSeed decodes a city export. Both the wrapped shape {"cities": {id: name}}
// and a flat {id: name} object are accepted. Records are returned sorted by ID.
func LoadSeed(r io.Reader) ([]models.City, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var wrapped seedFile
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	entries := wrapped.Cities
	if entries == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse seed: %w", err)
		}
	}
	if len(entries) == 0 {
		return nil, ErrEmptySeed
	}
	cities := make([]models.City, 0, len(entries))
	for id, name := range entries {
		if name == "" {
			continue
		}
		cities = append(cities, models.City{ID: id, Name: name})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].ID < cities[j].ID })
	return cities, nil
}
