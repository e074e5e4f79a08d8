package cityindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asdine/storm"
	"github.com/asdine/storm/codec/msgpack"
	bolt "go.etcd.io/bbolt"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// StormIndex is an Index backed by a storm (bbolt) database with the city
// name as a secondary index.
type StormIndex struct {
	db *storm.DB
}

// OpenStorm opens (creating if needed) the index database at path.
func OpenStorm(path string) (*StormIndex, error) {
	db, err := storm.Open(path,
		storm.Codec(msgpack.Codec),
		storm.BoltOptions(0600, &bolt.Options{Timeout: time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("open city index %s: %w", path, err)
	}
	if err := db.Init(&models.City{}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init city index: %w", err)
	}
	return &StormIndex{db: db}, nil
}

// Import writes the given cities in a single transaction. Existing records
// with the same ID are replaced.
func (s *StormIndex) Import(ctx context.Context, cities []models.City) error {
	tx, err := s.db.Begin(true)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for i := range cities {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := cities[i]
		if err := tx.Save(&c); err != nil {
			return fmt.Errorf("save city %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Count returns the number of stored cities.
func (s *StormIndex) Count() (int, error) {
	return s.db.Count(&models.City{})
}

// Range implements Index using the storm Name index.
func (s *StormIndex) Range(ctx context.Context, start, end string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []string{}
	if limit <= 0 || start > end {
		return out, nil
	}
	var cities []models.City
	if err := s.db.Range("Name", start, end, &cities, storm.Limit(limit)); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return out, nil
		}
		return nil, fmt.Errorf("range cities: %w", err)
	}
	for _, c := range cities {
		out = append(out, c.Name)
	}
	return out, nil
}

// Ping reports whether the underlying database is usable.
func (s *StormIndex) Ping() error {
	return s.db.Bolt.View(func(*bolt.Tx) error { return nil })
}

// Close implements Index.
func (s *StormIndex) Close() error {
	return s.db.Close()
}
