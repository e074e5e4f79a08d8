package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asdine/storm"
	"github.com/asdine/storm/codec/msgpack"
	bolt "go.etcd.io/bbolt"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

const (
	settingsBucket    = "settings"
	selectedCitiesKey = "selectedCities"
)

// CityStore persists the tracked-city list. Save always rewrites the whole
// list. Load returns an empty slice when nothing was saved yet.
type CityStore interface {
	Load(ctx context.Context) ([]models.CityEntry, error)
	Save(ctx context.Context, entries []models.CityEntry) error
}

// StormStore keeps the list in a storm key-value bucket.
type StormStore struct {
	db *storm.DB
}

// OpenStormStore opens (creating if needed) the settings database at path.
func OpenStormStore(path string) (*StormStore, error) {
	db, err := storm.Open(path,
		storm.Codec(msgpack.Codec),
		storm.BoltOptions(0600, &bolt.Options{Timeout: time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("open dashboard store %s: %w", path, err)
	}
	return &StormStore{db: db}, nil
}

func (s *StormStore) Load(ctx context.Context) ([]models.CityEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []models.CityEntry
	if err := s.db.Get(settingsBucket, selectedCitiesKey, &entries); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return []models.CityEntry{}, nil
		}
		return nil, fmt.Errorf("load selected cities: %w", err)
	}
	if entries == nil {
		entries = []models.CityEntry{}
	}
	return entries, nil
}

func (s *StormStore) Save(ctx context.Context, entries []models.CityEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = []models.CityEntry{}
	}
	if err := s.db.Set(settingsBucket, selectedCitiesKey, entries); err != nil {
		return fmt.Errorf("save selected cities: %w", err)
	}
	return nil
}

// Close releases the database file lock.
func (s *StormStore) Close() error {
	return s.db.Close()
}

// MemoryStore is a CityStore that lives for the process. LoadErr and
// SaveErr, when set, are returned by the corresponding call.
type MemoryStore struct {
	mu      sync.Mutex
	entries []models.CityEntry
	saves   int

	LoadErr error
	SaveErr error
}

// NewMemoryStore returns a store pre-populated with entries.
func NewMemoryStore(entries ...models.CityEntry) *MemoryStore {
	return &MemoryStore{entries: append([]models.CityEntry(nil), entries...)}
}

func (m *MemoryStore) Load(ctx context.Context) ([]models.CityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]models.CityEntry{}, m.entries...), nil
}

func (m *MemoryStore) Save(ctx context.Context, entries []models.CityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.entries = append([]models.CityEntry{}, entries...)
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
