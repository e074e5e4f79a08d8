package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// forecastBody renders a minimal provider response.
func forecastBody(created time.Time, temp int) []byte {
	return []byte(fmt.Sprintf(`{"query":{"created":%q,"results":{"channel":{
		"atmosphere":{"humidity":"50"},
		"item":{"condition":{"text":"Sunny","temp":"%d","code":"32"},
		"forecast":[{"code":"32","high":"80","low":"60"}]}}}}}`,
		created.UTC().Format(time.RFC3339), temp))
}

func placeBody(woeid string) []byte {
	return []byte(fmt.Sprintf(`{"query":{"results":{"place":{"woeid":%q}}}}`, woeid))
}

type fakeReading struct {
	created time.Time
	temp    int
}

// fakeWeather serves forecasts from readings. When gate is set, Forecast
// signals on started and then waits for release, ignoring ctx.
type fakeWeather struct {
	mu       sync.Mutex
	readings map[string]fakeReading
	err      error
	calls    map[string]int

	gate    string
	started chan struct{}
	release chan struct{}
}

func newFakeWeather() *fakeWeather {
	return &fakeWeather{readings: make(map[string]fakeReading), calls: make(map[string]int)}
}

func (f *fakeWeather) set(key string, created time.Time, temp int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings[key] = fakeReading{created, temp}
}

func (f *fakeWeather) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeWeather) ForecastURL(key string) string {
	return "https://weather.test/?woeid=" + key
}

func (f *fakeWeather) Forecast(ctx context.Context, key, label string) (models.Forecast, []byte, error) {
	f.mu.Lock()
	f.calls[key]++
	r, ok := f.readings[key]
	err := f.err
	gated := f.gate == key
	f.mu.Unlock()

	if gated {
		f.started <- struct{}{}
		<-f.release
	}
	if err != nil {
		return models.Forecast{}, nil, err
	}
	if !ok {
		return models.Forecast{}, nil, client.ErrLocationNotFound
	}
	body := forecastBody(r.created, r.temp)
	fc, err := client.DecodeForecast(body, key, label)
	return fc, body, err
}

type fakePlaces struct {
	keys map[string]string
	err  error
}

func (p *fakePlaces) PlaceURL(label string) string {
	return "https://places.test/?text=" + label
}

func (p *fakePlaces) Resolve(ctx context.Context, label string) (string, []byte, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	key, ok := p.keys[label]
	if !ok {
		return "", nil, client.ErrLocationNotFound
	}
	return key, placeBody(key), nil
}

// blockingLocator waits for ctx like a position prompt the user never answers.
type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context) (client.Coords, error) {
	<-ctx.Done()
	return client.Coords{}, fmt.Errorf("%w: %v", client.ErrLocateTimeout, ctx.Err())
}

type failingLocator struct {
	err error
}

func (l failingLocator) Locate(ctx context.Context) (client.Coords, error) {
	return client.Coords{}, l.err
}

type fakeGeocoder struct {
	name string
	err  error
}

func (g fakeGeocoder) CityName(ctx context.Context, lat, lon float64) (string, error) {
	return g.name, g.err
}
