// Package dashboard is the weather dashboard client: it tracks a list of
// cities, keeps one forecast card per city up to date from the response
// cache and the live provider, and persists the list between runs.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// Phase is the dashboard load state. It moves from loading to populated on
// the first applied forecast and never back.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhasePopulated Phase = "populated"
)

// Dialog is the add-city dialog state.
type Dialog struct {
	Open         bool   `json:"open"`
	Selection    string `json:"selection"`
	NudgeVisible bool   `json:"nudgeVisible"`
}

// DefaultLocateTimeout bounds UseMyLocation when Options.LocateTimeout is zero.
const DefaultLocateTimeout = 10 * time.Second

var (
	ErrEmptyLabel = errors.New("city label is empty")
	ErrNoResolver = errors.New("no place resolver configured")
	ErrNoLocator  = errors.New("no locator configured")
	errCacheMiss  = errors.New("cache miss")
	errNotTracked = errors.New("city is not tracked")
)

// Options wires a Controller. Weather and Store are required.
type Options struct {
	Weather  client.WeatherProvider
	Places   client.PlaceResolver
	Geocoder client.Geocoder
	Locator  client.Locator
	Cache    cache.Cache
	Store    CityStore

	CacheTTL      time.Duration
	LocateTimeout time.Duration
	Logger        *zap.Logger
}

// token is the cancellation handle tied to one card's lifetime.
type token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller owns all dashboard state. Every operation is a method; the
// state is guarded by mu and never shared outside copies.
type Controller struct {
	weather       client.WeatherProvider
	places        client.PlaceResolver
	geocoder      client.Geocoder
	locator       client.Locator
	cache         cache.Cache
	store         CityStore
	cacheTTL      time.Duration
	locateTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time

	persistMu sync.Mutex

	mu      sync.Mutex
	started bool
	tracked []models.CityEntry
	cards   map[string]models.Forecast
	tokens  map[string]*token
	dialog  Dialog
	phase   Phase
}

// NewController returns a Controller in the loading phase. Call Start to
// load the persisted list.
func NewController(opts Options) (*Controller, error) {
	if opts.Weather == nil {
		return nil, errors.New("dashboard: weather provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("dashboard: city store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locateTimeout := opts.LocateTimeout
	if locateTimeout <= 0 {
		locateTimeout = DefaultLocateTimeout
	}
	return &Controller{
		weather:       opts.Weather,
		places:        opts.Places,
		geocoder:      opts.Geocoder,
		locator:       opts.Locator,
		cache:         opts.Cache,
		store:         opts.Store,
		cacheTTL:      opts.CacheTTL,
		locateTimeout: locateTimeout,
		logger:        logger,
		now:           time.Now,
		cards:         make(map[string]models.Forecast),
		tokens:        make(map[string]*token),
		phase:         PhaseLoading,
	}, nil
}

// Start reads the persisted list once. A missing, empty or unreadable list
// is replaced by DefaultCity with its built-in forecast, and persisted.
// Otherwise a forecast is fetched for every entry; fetch failures are logged
// and leave that card absent.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	entries, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("load selected cities failed, using default", zap.Error(err))
		entries = nil
	}

	if len(entries) == 0 {
		c.mu.Lock()
		c.tracked = []models.CityEntry{DefaultCity}
		tok := c.tokenLocked(DefaultCity.Key)
		c.mu.Unlock()
		c.applyForecast(tok, DefaultForecast(), "default")
		c.persist(ctx)
		return nil
	}

	c.mu.Lock()
	c.tracked = append([]models.CityEntry(nil), entries...)
	c.mu.Unlock()
	observability.TrackedCities.Set(float64(len(entries)))

	_ = c.fetchAll(ctx, entries)
	return nil
}

// Refresh re-fetches every tracked city and waits for all of them. It
// returns the first fetch error; the others are logged.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetchAll(ctx, c.Tracked())
}

func (c *Controller) fetchAll(ctx context.Context, entries []models.CityEntry) error {
	var g errgroup.Group
	for _, e := range entries {
		e := e
		g.Go(func() error { return c.fetchForecast(ctx, e) })
	}
	return g.Wait()
}

// AddCity resolves label to a location key, tracks it, persists the list,
// closes the dialog and fetches its forecast. A key that is already tracked
// is only refreshed.
func (c *Controller) AddCity(ctx context.Context, label string) (models.CityEntry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.CityEntry{}, ErrEmptyLabel
	}
	if c.places == nil {
		return models.CityEntry{}, ErrNoResolver
	}

	key, err := c.resolveKey(ctx, label)
	if err != nil {
		c.logger.Warn("resolve city failed", zap.String("label", label), zap.Error(err))
		return models.CityEntry{}, fmt.Errorf("resolve %q: %w", label, err)
	}
	entry := models.CityEntry{Key: key, Label: label}

	c.mu.Lock()
	dup := indexOf(c.tracked, key) >= 0
	if !dup {
		c.tracked = append(c.tracked, entry)
	}
	c.dialog.Open = false
	c.mu.Unlock()

	if !dup {
		c.persist(ctx)
	}
	_ = c.fetchForecast(ctx, entry)
	return entry, nil
}

// RemoveCity stops tracking key: its in-flight fetches are canceled, the
// card and list entry are dropped and the list is persisted. Unknown keys
// are a no-op and report false.
func (c *Controller) RemoveCity(ctx context.Context, key string) bool {
	c.mu.Lock()
	if indexOf(c.tracked, key) < 0 {
		c.mu.Unlock()
		return false
	}
	if tok, ok := c.tokens[key]; ok {
		tok.cancel()
		delete(c.tokens, key)
	}
	delete(c.cards, key)
	kept := c.tracked[:0:0]
	for _, e := range c.tracked {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	c.tracked = kept
	c.mu.Unlock()

	c.persist(ctx)
	return true
}

// Close cancels every in-flight fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, tok := range c.tokens {
		tok.cancel()
		delete(c.tokens, k)
	}
}

// fetchForecast issues the cache lookup and the live fetch for entry
// concurrently. Both results go through applyForecast, so whichever carries
// the newer timestamp is what ends up displayed. Only the live fetch error
// is returned.
func (c *Controller) fetchForecast(ctx context.Context, entry models.CityEntry) error {
	c.mu.Lock()
	if indexOf(c.tracked, entry.Key) < 0 {
		c.mu.Unlock()
		observability.ForecastUpdatesTotal.WithLabelValues("network", "orphaned").Inc()
		return errNotTracked
	}
	tok := c.tokenLocked(entry.Key)
	c.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(tok.ctx, cancel)
	defer stop()

	url := c.weather.ForecastURL(entry.Key)
	var g errgroup.Group
	if c.cache != nil {
		g.Go(func() error {
			body, ok := c.cacheGet(fetchCtx, url)
			if !ok {
				return nil
			}
			f, err := client.DecodeForecast(body, entry.Key, entry.Label)
			if err != nil {
				c.logger.Warn("cached forecast unreadable", zap.String("key", entry.Key), zap.Error(err))
				return nil
			}
			c.applyForecast(tok, f, "cache")
			return nil
		})
	}
	g.Go(func() error {
		f, body, err := c.weather.Forecast(fetchCtx, entry.Key, entry.Label)
		if err != nil {
			if tok.ctx.Err() != nil {
				observability.ForecastUpdatesTotal.WithLabelValues("network", "orphaned").Inc()
				return nil
			}
			observability.ForecastUpdatesTotal.WithLabelValues("network", "failed").Inc()
			c.logger.Warn("forecast fetch failed",
				zap.String("key", entry.Key),
				zap.String("category", string(client.CategorizeError(err))),
				zap.Error(err))
			return fmt.Errorf("forecast %s: %w", entry.Key, err)
		}
		c.cacheSet(fetchCtx, url, body)
		c.applyForecast(tok, f, "network")
		return nil
	})
	return g.Wait()
}

// applyForecast installs f on its card unless the card was removed or f is
// older than what is displayed. Equal timestamps replace: the later write wins.
func (c *Controller) applyForecast(tok *token, f models.Forecast, source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok.ctx.Err() != nil {
		observability.ForecastUpdatesTotal.WithLabelValues(source, "orphaned").Inc()
		return false
	}
	current, exists := c.cards[f.Key]
	if !exists && indexOf(c.tracked, f.Key) < 0 {
		observability.ForecastUpdatesTotal.WithLabelValues(source, "orphaned").Inc()
		return false
	}
	if exists && f.Created.Before(current.Created) {
		observability.ForecastUpdatesTotal.WithLabelValues(source, "stale").Inc()
		c.logger.Debug("stale forecast dropped",
			zap.String("key", f.Key),
			zap.Time("created", f.Created),
			zap.Time("displayed", current.Created))
		return false
	}
	c.cards[f.Key] = f
	if c.phase == PhaseLoading {
		c.phase = PhasePopulated
	}
	observability.ForecastUpdatesTotal.WithLabelValues(source, "applied").Inc()
	return true
}

// resolveKey asks the cache and the place resolver concurrently; the first
// success wins. The resolver's error is reported when both fail.
func (c *Controller) resolveKey(ctx context.Context, label string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		key     string
		err     error
		network bool
	}
	results := make(chan result, 2)
	pending := 1

	go func() {
		key, body, err := c.places.Resolve(ctx, label)
		if err == nil {
			c.cacheSet(ctx, c.places.PlaceURL(label), body)
		}
		results <- result{key: key, err: err, network: true}
	}()
	if c.cache != nil {
		pending++
		go func() {
			body, ok := c.cacheGet(ctx, c.places.PlaceURL(label))
			if !ok {
				results <- result{err: errCacheMiss}
				return
			}
			key, err := client.DecodePlace(body)
			results <- result{key: key, err: err}
		}()
	}

	var netErr error
	for ; pending > 0; pending-- {
		r := <-results
		if r.err == nil {
			return r.key, nil
		}
		if r.network {
			netErr = r.err
		}
	}
	return "", netErr
}

func (c *Controller) cacheGet(ctx context.Context, url string) ([]byte, bool) {
	body, ok, err := c.cache.Get(ctx, url)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", string(client.CategorizeError(err))).Inc()
		c.logger.Warn("cache get failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return body, true
}

func (c *Controller) cacheSet(ctx context.Context, url string, body []byte) {
	if c.cache == nil || len(body) == 0 {
		return
	}
	if err := c.cache.Set(ctx, url, body, c.cacheTTL); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", string(client.CategorizeError(err))).Inc()
		c.logger.Warn("cache set failed", zap.Error(err))
	}
}

// persist writes the current list. Saves are serialized so the last write
// always reflects the latest state. Failures are logged only.
func (c *Controller) persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	entries := c.Tracked()
	observability.TrackedCities.Set(float64(len(entries)))
	if err := c.store.Save(ctx, entries); err != nil {
		c.logger.Warn("save selected cities failed", zap.Error(err))
	}
}

// tokenLocked returns the live token for key, creating one if needed.
func (c *Controller) tokenLocked(key string) *token {
	if tok, ok := c.tokens[key]; ok {
		return tok
	}
	ctx, cancel := context.WithCancel(context.Background())
	tok := &token{ctx: ctx, cancel: cancel}
	c.tokens[key] = tok
	return tok
}

func indexOf(entries []models.CityEntry, key string) int {
	for i, e := range entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Tracked returns a copy of the tracked-city list in insertion order.
func (c *Controller) Tracked() []models.CityEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CityEntry{}, c.tracked...)
}

// Phase returns the current load phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Forecast returns the displayed forecast for key.
func (c *Controller) Forecast(key string) (models.Forecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.cards[key]
	return f, ok
}
