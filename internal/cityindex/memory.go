package cityindex

import (
	"context"
	"sort"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// MemoryIndex is an Index over a sorted in-memory slice of names.
// It is immutable after construction and safe for concurrent use.
type MemoryIndex struct {
	names []string
}

// NewMemoryIndex builds an index from the given records.
func NewMemoryIndex(cities []models.City) *MemoryIndex {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return &MemoryIndex{names: names}
}

// Range implements Index.
func (m *MemoryIndex) Range(ctx context.Context, start, end string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []string{}
	if limit <= 0 || start > end {
		return out, nil
	}
	for i := sort.SearchStrings(m.names, start); i < len(m.names) && len(out) < limit; i++ {
		if m.names[i] > end {
			break
		}
		out = append(out, m.names[i])
	}
	return out, nil
}

// Len returns the number of indexed names.
func (m *MemoryIndex) Len() int {
	return len(m.names)
}

// Close implements Index. It is a no-op.
func (m *MemoryIndex) Close() error {
	return nil
}
