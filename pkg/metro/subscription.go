package metro

import (
	"time"

	"golang.org/x/exp/slices"
)

// Subscription records that a consumer is currently interested in the live
// arrivals of a platform.
type Subscription struct {
	Key         PlatformKey
	LastTouched time.Time
}

// Touch creates or renews the subscription for a platform. Touches with an
// older timestamp than the stored one are ignored.
func (n *Network) Touch(stationCode string, platformCode string, at time.Time) {
	key := PlatformKey{StationCode: stationCode, PlatformCode: platformCode}

	n.subscriptionsMu.Lock()
	defer n.subscriptionsMu.Unlock()

	if existing, ok := n.subscriptions[key]; ok && existing.After(at) {
		return
	}
	n.subscriptions[key] = at
}

// LastInterest returns when the platform was last touched. The bool is false
// if there is no live subscription.
func (n *Network) LastInterest(stationCode string, platformCode string) (time.Time, bool) {
	n.subscriptionsMu.Lock()
	defer n.subscriptionsMu.Unlock()

	at, ok := n.subscriptions[PlatformKey{StationCode: stationCode, PlatformCode: platformCode}]
	return at, ok
}

// ExpireSubscriptions drops every subscription last touched before cutoff
// and returns the keys that were dropped.
func (n *Network) ExpireSubscriptions(cutoff time.Time) []PlatformKey {
	n.subscriptionsMu.Lock()
	defer n.subscriptionsMu.Unlock()

	var expired []PlatformKey
	for key, at := range n.subscriptions {
		if at.Before(cutoff) {
			expired = append(expired, key)
			delete(n.subscriptions, key)
		}
	}
	slices.SortFunc(expired, comparePlatformKeys)

	return expired
}

func (n *Network) Subscriptions() []Subscription {
	n.subscriptionsMu.Lock()
	defer n.subscriptionsMu.Unlock()

	subscriptions := make([]Subscription, 0, len(n.subscriptions))
	for key, at := range n.subscriptions {
		subscriptions = append(subscriptions, Subscription{Key: key, LastTouched: at})
	}
	slices.SortFunc(subscriptions, func(a, b Subscription) int {
		return comparePlatformKeys(a.Key, b.Key)
	})

	return subscriptions
}
