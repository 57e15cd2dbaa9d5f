package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultSubscriptionTTL = 30 * time.Minute
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxConcurrency  = 4
)

type Options struct {
	Network *metro.Network
	Tracked []TrackedPlatform

	// Minimum age of a platform's arrivals before it is fetched again.
	RefreshInterval time.Duration
	// How long a platform stays live after the last consumer read.
	SubscriptionTTL time.Duration
	RequestTimeout  time.Duration
	MaxConcurrency  int

	Metrics *Metrics
	Now     func() time.Time
}

// Coordinator decides on every polling cycle which platforms need a live
// fetch, which can be served from memory and which have been abandoned by
// their consumers.
type Coordinator struct {
	network  *metro.Network
	entities []Entity
	metrics  *Metrics
	now      func() time.Time

	refreshInterval time.Duration
	subscriptionTTL time.Duration
	requestTimeout  time.Duration
	maxConcurrency  int

	passMu sync.Mutex
	flight singleflight.Group

	stateMu       sync.Mutex
	refreshed     map[metro.PlatformKey]time.Time
	platformLocks map[metro.PlatformKey]*sync.Mutex
	lastAttempt   time.Time
	lastSuccess   time.Time
	lastErr       error
}

// New builds a coordinator over an already hydrated network. The tracked
// platforms are resolved against the network here so configuration errors
// surface at start up.
func New(opts Options) (*Coordinator, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("coordinator: network required")
	}

	c := &Coordinator{
		network:         opts.Network,
		metrics:         opts.Metrics,
		now:             opts.Now,
		refreshInterval: opts.RefreshInterval,
		subscriptionTTL: opts.SubscriptionTTL,
		requestTimeout:  opts.RequestTimeout,
		maxConcurrency:  opts.MaxConcurrency,
		refreshed:       map[metro.PlatformKey]time.Time{},
		platformLocks:   map[metro.PlatformKey]*sync.Mutex{},
	}

	if c.now == nil {
		c.now = time.Now
	}
	if c.refreshInterval <= 0 {
		c.refreshInterval = DefaultRefreshInterval
	}
	if c.subscriptionTTL <= 0 {
		c.subscriptionTTL = DefaultSubscriptionTTL
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.maxConcurrency <= 0 {
		c.maxConcurrency = DefaultMaxConcurrency
	}

	entities, err := ResolveEntities(opts.Network, opts.Tracked)
	if err != nil {
		return nil, err
	}
	c.entities = entities

	return c, nil
}

// Touch records that a consumer has just read the given platform.
func (c *Coordinator) Touch(stationCode string, platformCode string) {
	c.network.Touch(stationCode, platformCode, c.now())
}

// Run refreshes on every interval until the context is cancelled. Failed
// passes are logged and retried on the next tick.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	log.Info().
		Dur("interval", interval).
		Dur("refresh", c.refreshInterval).
		Dur("subscriptionttl", c.subscriptionTTL).
		Int("entities", len(c.entities)).
		Msg("Starting metro coordinator")

	for {
		startTime := time.Now()

		if err := c.Refresh(ctx); err != nil {
			log.Error().Err(err).Msg("Metro refresh failed")
		}

		executionDuration := time.Since(startTime)
		waitTime := interval - executionDuration
		if waitTime < 0 {
			waitTime = 0
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Metro coordinator stopped")
			return
		case <-time.After(waitTime):
		}
	}
}

// Refresh runs one polling cycle. Subscriptions idle past the TTL are dropped
// and their platforms cleared. Platforms refreshed within the refresh
// interval are skipped and the rest are fetched. A failure of any fetch is reported as a single
// *RefreshError; platforms that failed keep their previous arrivals.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	startTime := time.Now()
	now := c.now()

	c.stateMu.Lock()
	c.lastAttempt = now
	c.stateMu.Unlock()

	cleared := 0
	for _, key := range c.network.ExpireSubscriptions(now.Add(-c.subscriptionTTL)) {
		if c.expire(key) {
			cleared++
		}
	}

	var due []metro.PlatformKey
	for _, platform := range c.network.Platforms() {
		key := platform.Key()

		if _, subscribed := c.network.LastInterest(key.StationCode, key.PlatformCode); !subscribed {
			continue
		}
		if c.isFresh(key, now) {
			continue
		}

		due = append(due, key)
	}

	var failed atomic.Int32

	p := pool.New().WithErrors().WithMaxGoroutines(c.maxConcurrency)
	for _, key := range due {
		p.Go(func() error {
			if err := c.refreshPlatform(ctx, key, now); err != nil {
				failed.Add(1)
				return err
			}
			return nil
		})
	}
	err := p.Wait()

	c.metrics.observePass(err, len(c.network.Subscriptions()), cleared)

	logger := log.With().
		Int("due", len(due)).
		Int("failed", int(failed.Load())).
		Int("cleared", cleared).
		Str("duration", time.Since(startTime).String()).
		Logger()

	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if err != nil {
		c.lastErr = &RefreshError{Failed: int(failed.Load()), Attempted: len(due), Err: err}
		logger.Debug().Msg("Metro refresh pass failed")
		return c.lastErr
	}

	c.lastErr = nil
	c.lastSuccess = now
	if len(due) > 0 {
		logger.Info().Msg("Metro refresh pass")
	} else {
		logger.Debug().Msg("Metro refresh pass")
	}

	return nil
}

// EnsureFresh fetches a single platform straight away unless it was
// refreshed within the refresh interval.
func (c *Coordinator) EnsureFresh(ctx context.Context, stationCode string, platformCode string) error {
	platform, err := c.network.GetPlatform(stationCode, platformCode)
	if err != nil {
		return err
	}

	return c.refreshPlatform(ctx, platform.Key(), c.now())
}

func (c *Coordinator) refreshPlatform(ctx context.Context, key metro.PlatformKey, now time.Time) error {
	_, err, _ := c.flight.Do(key.String(), func() (any, error) {
		lock := c.platformLock(key)
		lock.Lock()
		defer lock.Unlock()

		if c.isFresh(key, now) {
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		startTime := time.Now()
		err := c.network.Update(ctx, key.StationCode, key.PlatformCode)
		c.metrics.observePlatform(err, time.Since(startTime))

		if err != nil {
			log.Warn().Err(err).Str("station", key.StationCode).Str("platform", key.PlatformCode).Msg("Failed to refresh platform")
			return nil, err
		}

		c.stateMu.Lock()
		c.refreshed[key] = now
		c.stateMu.Unlock()

		return nil, nil
	})

	return err
}

func (c *Coordinator) isFresh(key metro.PlatformKey, now time.Time) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	refreshedAt, ok := c.refreshed[key]
	return ok && now.Sub(refreshedAt) < c.refreshInterval
}

// expire clears a platform whose subscription has just been dropped. A
// platform touched again since then is left alone. It reports whether there
// was anything to clear.
func (c *Coordinator) expire(key metro.PlatformKey) bool {
	platform, err := c.network.GetPlatform(key.StationCode, key.PlatformCode)
	if err != nil {
		return false
	}

	lock := c.platformLock(key)
	lock.Lock()
	defer lock.Unlock()

	if _, subscribed := c.network.LastInterest(key.StationCode, key.PlatformCode); subscribed {
		return false
	}

	c.stateMu.Lock()
	_, wasRefreshed := c.refreshed[key]
	delete(c.refreshed, key)
	c.stateMu.Unlock()

	if !wasRefreshed && len(platform.Arrivals()) == 0 {
		return false
	}

	platform.Clear()
	log.Debug().Str("station", key.StationCode).Str("platform", key.PlatformCode).Msg("Subscription expired, cleared arrivals")

	return true
}

// platformLock serialises fetching and clearing of a single platform.
func (c *Coordinator) platformLock(key metro.PlatformKey) *sync.Mutex {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	lock, ok := c.platformLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.platformLocks[key] = lock
	}

	return lock
}

// LastUpdate is the time of the last fully successful refresh pass.
func (c *Coordinator) LastUpdate() time.Time {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.lastSuccess
}

func (c *Coordinator) LastAttempt() time.Time {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.lastAttempt
}

// LastRefreshedAt is when the platform last had a successful live fetch.
func (c *Coordinator) LastRefreshedAt(stationCode string, platformCode string) (time.Time, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	at, ok := c.refreshed[metro.PlatformKey{StationCode: stationCode, PlatformCode: platformCode}]
	return at, ok
}

// Healthy is false when the most recent refresh pass failed.
func (c *Coordinator) Healthy() (bool, error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return c.lastErr == nil, c.lastErr
}

func (c *Coordinator) Network() *metro.Network {
	return c.network
}
