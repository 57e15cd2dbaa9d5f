package metro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchRenewsSubscription(t *testing.T) {
	network, _ := hydratedNetwork(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, ok := network.LastInterest("JES", "1")
	assert.False(t, ok)

	network.Touch("JES", "1", start)
	network.Touch("JES", "1", start.Add(time.Minute))
	network.Touch("JES", "1", start.Add(30*time.Second))

	at, ok := network.LastInterest("JES", "1")
	require.True(t, ok)
	assert.Equal(t, start.Add(time.Minute), at)
}

func TestExpireSubscriptions(t *testing.T) {
	network, _ := hydratedNetwork(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	network.Touch("JES", "1", start)
	network.Touch("MSN", "2", start.Add(20*time.Minute))
	network.Touch("HAY", "1", start.Add(5*time.Minute))

	expired := network.ExpireSubscriptions(start.Add(10 * time.Minute))
	assert.Equal(t, []PlatformKey{
		{StationCode: "HAY", PlatformCode: "1"},
		{StationCode: "JES", PlatformCode: "1"},
	}, expired)

	subscriptions := network.Subscriptions()
	require.Len(t, subscriptions, 1)
	assert.Equal(t, PlatformKey{StationCode: "MSN", PlatformCode: "2"}, subscriptions[0].Key)

	assert.Empty(t, network.ExpireSubscriptions(start.Add(10*time.Minute)))
	assert.Len(t, network.ExpireSubscriptions(start.Add(21*time.Minute)), 1)
	assert.Empty(t, network.Subscriptions())
}
