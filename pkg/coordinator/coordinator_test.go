package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeFeed struct {
	mu sync.Mutex

	times    map[metro.PlatformKey][]feed.ArrivalRecord
	timesErr error
	calls    map[metro.PlatformKey]int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		times: map[metro.PlatformKey][]feed.ArrivalRecord{},
		calls: map[metro.PlatformKey]int{},
	}
}

func (f *fakeFeed) GetStations(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"JES": "Jesmond",
		"HAY": "Haymarket",
		"MTS": "Monument",
		"SSS": "South Shields",
		"APT": "Airport",
	}, nil
}

func (f *fakeFeed) GetPlatforms(ctx context.Context) (map[string][]feed.PlatformRecord, error) {
	return map[string][]feed.PlatformRecord{
		"JES": {{PlatformNumber: 1, HelperText: "Trains to South Shields"}, {PlatformNumber: 2, HelperText: "Trains to Airport"}},
		"HAY": {{PlatformNumber: 1}, {PlatformNumber: 2}},
		"MTS": {{PlatformNumber: 1}, {PlatformNumber: 2}},
		"SSS": {{PlatformNumber: 1}},
		"APT": {{PlatformNumber: 1}},
	}, nil
}

func (f *fakeFeed) GetTimes(ctx context.Context, stationCode string, platformCode string) ([]feed.ArrivalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := metro.PlatformKey{StationCode: stationCode, PlatformCode: platformCode}
	f.calls[key]++

	if f.timesErr != nil {
		return nil, f.timesErr
	}
	return f.times[key], nil
}

func (f *fakeFeed) setTimes(stationCode string, platformCode string, records ...feed.ArrivalRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.times[metro.PlatformKey{StationCode: stationCode, PlatformCode: platformCode}] = records
}

func (f *fakeFeed) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.timesErr = err
}

func (f *fakeFeed) callCount(stationCode string, platformCode string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[metro.PlatformKey{StationCode: stationCode, PlatformCode: platformCode}]
}

func arrival(trn string, destination string, dueIn int) feed.ArrivalRecord {
	return feed.ArrivalRecord{
		TRN:                 trn,
		Line:                "YELLOW",
		Destination:         destination,
		DueIn:               dueIn,
		ActualPredictedTime: "2024-03-01T10:15:00Z",
		LastEvent:           "DEPARTED",
		LastEventLocation:   "Haymarket Platform 1",
		LastEventTime:       "2024-03-01T10:05:00Z",
	}
}

func newTestCoordinator(t *testing.T, opts Options) (*Coordinator, *fakeFeed, *fakeClock) {
	t.Helper()

	source := newFakeFeed()
	network := metro.NewNetwork(source)
	require.NoError(t, network.Hydrate(context.Background(), source))

	clock := newFakeClock()

	opts.Network = network
	opts.Now = clock.Now

	c, err := New(opts)
	require.NoError(t, err)

	return c, source, clock
}

func TestNewRequiresNetwork(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestRefreshSkipsPlatformsWithoutSubscription(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 0, source.callCount("JES", "1"))
	assert.Empty(t, c.Trains("JES", "1"))
}

func TestRefreshThrottlesWithinRefreshInterval(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3), arrival("102", "South Shields", 9))

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, source.callCount("JES", "1"))

	platform, err := c.Network().GetPlatform("JES", "1")
	require.NoError(t, err)
	first := platform.Arrivals()

	clock.Advance(20 * time.Second)
	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 1, source.callCount("JES", "1"))
	second := platform.Arrivals()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}

	clock.Advance(10 * time.Second)
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 2, source.callCount("JES", "1"))
}

func TestRefreshClearsExpiredSubscriptions(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, c.Trains("JES", "1"), 1)

	clock.Advance(29 * time.Minute)
	require.NoError(t, c.Refresh(context.Background()))
	assert.Len(t, c.Trains("JES", "1"), 1)

	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Empty(t, c.Trains("JES", "1"))
	assert.Empty(t, c.Network().Subscriptions())
	_, refreshed := c.LastRefreshedAt("JES", "1")
	assert.False(t, refreshed)
	assert.Equal(t, UnknownValue, c.NextTrain("JES", "1"))
}

func TestRefreshUpdatesThroughNetwork(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3), arrival("105", "South Shields", 9))

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))

	trains, err := c.Network().Trains("JES", "1")
	require.NoError(t, err)
	require.Len(t, trains, 2)
	assert.Equal(t, "101", trains[0].TRN)

	_, registered := c.Network().GetTrain("105")
	assert.True(t, registered)
}

func TestExpireKeepsPlatformTouchedAgain(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))
	key := metro.PlatformKey{StationCode: "JES", PlatformCode: "1"}

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))

	clock.Advance(31 * time.Minute)
	expired := c.Network().ExpireSubscriptions(clock.Now().Add(-c.subscriptionTTL))
	require.Equal(t, []metro.PlatformKey{key}, expired)

	// A request arrives between the expiry and the clear.
	c.Touch("JES", "1")

	assert.False(t, c.expire(key))
	assert.Len(t, c.Trains("JES", "1"), 1)
	_, subscribed := c.Network().LastInterest("JES", "1")
	assert.True(t, subscribed)
	_, refreshed := c.LastRefreshedAt("JES", "1")
	assert.True(t, refreshed)
}

func TestExpireWaitsForInFlightFetch(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))
	key := metro.PlatformKey{StationCode: "JES", PlatformCode: "1"}

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))

	clock.Advance(31 * time.Minute)
	require.Len(t, c.Network().ExpireSubscriptions(clock.Now().Add(-c.subscriptionTTL)), 1)

	lock := c.platformLock(key)
	lock.Lock()

	done := make(chan bool, 1)
	go func() { done <- c.expire(key) }()

	select {
	case <-done:
		t.Fatal("expire ran while a fetch held the platform")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, c.Trains("JES", "1"), 1)

	lock.Unlock()
	assert.True(t, <-done)
	assert.Empty(t, c.Trains("JES", "1"))
}

func TestRefreshFailureKeepsArrivals(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))
	lastUpdate := c.LastUpdate()

	source.setError(&feed.TransportError{Path: "times/JES/1", StatusCode: 503, Err: errors.New("Service Unavailable")})
	clock.Advance(time.Minute)
	c.Touch("JES", "1")

	err := c.Refresh(context.Background())
	require.Error(t, err)

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, 1, refreshErr.Failed)
	assert.Equal(t, 1, refreshErr.Attempted)
	assert.ErrorIs(t, err, feed.ErrTransport)

	assert.Len(t, c.Trains("JES", "1"), 1)
	assert.Equal(t, lastUpdate, c.LastUpdate())
	assert.Equal(t, clock.Now(), c.LastAttempt())

	healthy, healthErr := c.Healthy()
	assert.False(t, healthy)
	assert.ErrorIs(t, healthErr, feed.ErrTransport)

	source.setError(nil)
	require.NoError(t, c.Refresh(context.Background()))

	healthy, _ = c.Healthy()
	assert.True(t, healthy)
	assert.Equal(t, clock.Now(), c.LastUpdate())
}

func TestEnsureFresh(t *testing.T) {
	c, source, clock := newTestCoordinator(t, Options{})
	source.setTimes("HAY", "2", arrival("105", "Airport", 4))

	require.NoError(t, c.EnsureFresh(context.Background(), "HAY", "2"))
	require.NoError(t, c.EnsureFresh(context.Background(), "HAY", "2"))
	assert.Equal(t, 1, source.callCount("HAY", "2"))

	clock.Advance(c.refreshInterval)
	require.NoError(t, c.EnsureFresh(context.Background(), "HAY", "2"))
	assert.Equal(t, 2, source.callCount("HAY", "2"))

	err := c.EnsureFresh(context.Background(), "HAY", "9")
	assert.ErrorIs(t, err, metro.ErrUnknownPlatform)
}

func TestNextTrainDescriptions(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{})
	source.setTimes("JES", "2",
		arrival("112", "Airport", 7),
		arrival("110", "Airport", 0),
		arrival("111", "Somewhere New", 2),
	)

	c.Touch("JES", "2")
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, "Due now to Airport (Train 110)", c.NextTrain("JES", "2"))

	description, ok := c.NextTrainDescription("JES", "2", 1)
	require.True(t, ok)
	assert.Equal(t, "2 mins to Somewhere New (Train 111)", description)

	description, ok = c.NextTrainDescription("JES", "2", 2)
	require.True(t, ok)
	assert.Equal(t, "7 mins to Airport (Train 112)", description)

	_, ok = c.NextTrainDescription("JES", "2", 3)
	assert.False(t, ok)
	_, ok = c.NextTrainDescription("JES", "2", -1)
	assert.False(t, ok)
}

func TestQueriesDegradeToSentinels(t *testing.T) {
	c, _, _ := newTestCoordinator(t, Options{})

	assert.Equal(t, UnknownValue, c.NextTrain("XXX", "1"))
	assert.Equal(t, UnknownValue, c.NextTrain("JES", "7"))
	assert.Equal(t, UnknownValue, c.NextTrain("JES", "1"))

	assert.NotNil(t, c.Trains("XXX", "1"))
	assert.Empty(t, c.Trains("XXX", "1"))

	assert.Equal(t, "Trains to South Shields", c.PlatformDescription("JES", "1"))
	assert.Equal(t, UnknownValue, c.PlatformDescription("HAY", "1"))
	assert.Equal(t, UnknownValue, c.PlatformDescription("XXX", "1"))

	_, ok := c.Train("999")
	assert.False(t, ok)
}

func TestTrainStatus(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))
	source.setTimes("HAY", "1", arrival("101", "South Shields", 5))

	c.Touch("JES", "1")
	c.Touch("HAY", "1")
	require.NoError(t, c.Refresh(context.Background()))

	status, ok := c.Train("101")
	require.True(t, ok)
	assert.Equal(t, "SSS", status.DestinationCode)
	assert.Len(t, status.Observations, 2)
	require.NotNil(t, status.Position)
	assert.Equal(t, metro.PlatformKey{StationCode: "HAY", PlatformCode: "1"}, *status.Position)
}

func TestEntities(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{
		Tracked: []TrackedPlatform{
			{Station: "Jesmond", Destination: "South Shields"},
			{Station: "jes", Destination: "APT"},
			{Station: "HAY", Platform: "1", Name: "Haymarket southbound"},
		},
	})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))

	entities := c.Entities()
	require.Len(t, entities, 3)

	assert.Equal(t, Entity{ID: "jes_1_sss", Name: "Jesmond platform 1", StationCode: "JES", PlatformCode: "1", DestinationCode: "SSS"}, entities[0])
	assert.Equal(t, Entity{ID: "jes_2_apt", Name: "Jesmond platform 2", StationCode: "JES", PlatformCode: "2", DestinationCode: "APT"}, entities[1])
	assert.Equal(t, Entity{ID: "hay_1", Name: "Haymarket southbound", StationCode: "HAY", PlatformCode: "1"}, entities[2])

	entity, ok := c.Entity("jes_1_sss")
	require.True(t, ok)

	state := c.EntityState(entity)
	assert.Equal(t, UnknownValue, state.NextTrain)
	assert.Nil(t, state.LastUpdate)

	_, subscribed := c.Network().LastInterest("JES", "1")
	assert.True(t, subscribed)

	require.NoError(t, c.Refresh(context.Background()))

	state = c.EntityState(entity)
	assert.Equal(t, "3 mins to South Shields (Train 101)", state.NextTrain)
	assert.Equal(t, "Trains to South Shields", state.Description)
	assert.Len(t, state.Trains, 1)
	assert.NotNil(t, state.LastUpdate)
}

func TestResolveEntitiesErrors(t *testing.T) {
	source := newFakeFeed()
	network := metro.NewNetwork(source)
	require.NoError(t, network.Hydrate(context.Background(), source))

	_, err := ResolveEntities(network, []TrackedPlatform{{Station: "Nowhere", Platform: "1"}})
	assert.ErrorIs(t, err, metro.ErrUnknownStation)

	_, err = ResolveEntities(network, []TrackedPlatform{{Station: "JES", Platform: "5"}})
	assert.ErrorIs(t, err, metro.ErrUnknownPlatform)

	_, err = ResolveEntities(network, []TrackedPlatform{{Station: "JES"}})
	assert.Error(t, err)

	_, err = ResolveEntities(network, []TrackedPlatform{{Station: "JES", Destination: "JES"}})
	assert.ErrorIs(t, err, metro.ErrNoPlatformRoute)

	_, err = ResolveEntities(network, []TrackedPlatform{{Station: "JES", Platform: "1"}, {Station: "Jesmond", Platform: "1"}})
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	c, source, clock := newTestCoordinator(t, Options{Metrics: metrics})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))

	c.Touch("JES", "1")
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.platformRefreshes.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.passes.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.subscriptions))

	clock.Advance(time.Hour)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.platformsCleared))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.subscriptions))

	source.setError(errors.New("boom"))
	c.Touch("JES", "1")
	assert.Error(t, c.Refresh(context.Background()))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.platformRefreshes.WithLabelValues(resultError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.passes.WithLabelValues(resultError)))
}

func TestRunStopsOnCancel(t *testing.T) {
	c, source, _ := newTestCoordinator(t, Options{})
	source.setTimes("JES", "1", arrival("101", "South Shields", 3))
	c.Touch("JES", "1")

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(c.Trains("JES", "1")) == 1
	}, time.Second, time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
