package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsNonPositiveInterval(t *testing.T) {
	c := newTestController(t, Options{})
	_, err := NewScheduler(context.Background(), c, 0, nil)
	assert.Error(t, err)
}

func TestScheduler_RefreshesPeriodically(t *testing.T) {
	weather := newFakeWeather()
	weather.set(austin.Key, t0, 80)
	c := newTestController(t, Options{Weather: weather, Store: NewMemoryStore(austin)})
	require.NoError(t, c.Start(context.Background()))

	s, err := NewScheduler(context.Background(), c, 20*time.Millisecond, nil)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return weather.callCount(austin.Key) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}
