package cachedresults

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
)

const DefaultExpiration = 24 * time.Hour

const (
	stationsKey  = "metro:reference:stations"
	platformsKey = "metro:reference:platforms"
)

// ReferenceCache keeps the station and platform catalogues in Redis so a
// restart does not have to go back to the feed for them. Any cache failure
// falls back to the wrapped source.
type ReferenceCache struct {
	Cache  *cache.Cache[string]
	Source feed.ReferenceSource
}

func NewReferenceCache(client redisstore.RedisClientInterface, source feed.ReferenceSource, expiration time.Duration) *ReferenceCache {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &ReferenceCache{
		Cache:  cache.New[string](redisStore),
		Source: source,
	}
}

func (r *ReferenceCache) GetStations(ctx context.Context) (map[string]string, error) {
	var stations map[string]string

	if r.get(ctx, stationsKey, &stations) {
		return stations, nil
	}

	stations, err := r.Source.GetStations(ctx)
	if err != nil {
		return nil, err
	}
	r.set(ctx, stationsKey, stations)

	return stations, nil
}

func (r *ReferenceCache) GetPlatforms(ctx context.Context) (map[string][]feed.PlatformRecord, error) {
	var platforms map[string][]feed.PlatformRecord

	if r.get(ctx, platformsKey, &platforms) {
		return platforms, nil
	}

	platforms, err := r.Source.GetPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	r.set(ctx, platformsKey, platforms)

	return platforms, nil
}

func (r *ReferenceCache) get(ctx context.Context, key string, target any) bool {
	cachedValue, err := r.Cache.Get(ctx, key)
	if err != nil {
		var notFound *store.NotFound
		if !errors.As(err, &notFound) {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read reference cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cachedValue), target); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt reference cache entry")
		return false
	}

	log.Debug().Str("key", key).Msg("Reference data served from cache")

	return true
}

func (r *ReferenceCache) set(ctx context.Context, key string, value any) {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to encode reference data")
		return
	}

	if err := r.Cache.Set(ctx, key, string(valueBytes)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to write reference cache")
	}
}

// Invalidate drops both catalogues so the next read goes to the source.
func (r *ReferenceCache) Invalidate(ctx context.Context) error {
	if err := r.Cache.Delete(ctx, stationsKey); err != nil {
		return err
	}

	return r.Cache.Delete(ctx, platformsKey)
}
