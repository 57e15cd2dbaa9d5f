package api

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/cachedresults"
	"github.com/travigo/tyne-and-wear-metro/pkg/config"
	"github.com/travigo/tyne-and-wear-metro/pkg/coordinator"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
	"github.com/travigo/tyne-and-wear-metro/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

const hydrateMaxElapsedTime = 5 * time.Minute

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Track live arrivals and serve them over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen target for the web server",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "how often the coordinator runs a refresh pass",
			},
			&cli.StringFlag{
				Name:  "reference-dir",
				Usage: "read stations.json and platforms.json from this directory instead of the API",
			},
			&cli.StringFlag{
				Name:  "api-base",
				Usage: "base URL of the metro RTI API",
			},
			&cli.BoolFlag{
				Name:  "refresh-reference",
				Usage: "drop the cached station and platform catalogues before loading them",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, c.Bool("refresh-reference"))
		},
	}
}

// loadConfig layers the command line flags over config.Load and validates
// the result.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("reference-dir") {
		cfg.ReferenceDir = c.String("reference-dir")
	}
	if c.IsSet("api-base") {
		cfg.APIBase = c.String("api-base")
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, refreshReference bool) error {
	client := feed.NewClient(cfg.APIBase, cfg.RequestTimeout)

	var reference feed.ReferenceSource = client
	if cfg.ReferenceDir != "" {
		reference = feed.FileSource{Directory: cfg.ReferenceDir}
	}
	reference = cacheReference(ctx, cfg, reference, refreshReference)

	network := metro.NewNetwork(client)
	if err := HydrateNetwork(ctx, network, reference, hydrateMaxElapsedTime); err != nil {
		return err
	}

	coord, err := coordinator.New(coordinator.Options{
		Network:         network,
		Tracked:         cfg.Tracked,
		RefreshInterval: cfg.RefreshInterval,
		SubscriptionTTL: cfg.SubscriptionTTL,
		RequestTimeout:  cfg.RequestTimeout,
		MaxConcurrency:  cfg.MaxConcurrency,
		Metrics:         coordinator.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	go coord.Run(ctx, cfg.PollInterval)

	return SetupServer(ctx, cfg.Listen, NewApp(coord, prometheus.DefaultGatherer))
}

// cacheReference wraps the reference source in the Redis cache when one is
// configured and reachable. With refresh set the cached catalogues are
// dropped first.
func cacheReference(ctx context.Context, cfg config.Config, reference feed.ReferenceSource, refresh bool) feed.ReferenceSource {
	if cfg.Redis == nil {
		return reference
	}

	if err := redis_client.Connect(ctx, *cfg.Redis); err != nil {
		log.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Redis unavailable, reference data will not be cached")
		return reference
	}

	referenceCache := cachedresults.NewReferenceCache(redis_client.Client, reference, cfg.ReferenceCacheTTL)
	if refresh {
		if err := referenceCache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate reference cache")
		} else {
			log.Info().Msg("Reference cache invalidated")
		}
	}

	return referenceCache
}

// HydrateNetwork keeps retrying the reference data load with exponential
// backoff. Nothing can be served until it succeeds.
func HydrateNetwork(ctx context.Context, network *metro.Network, reference feed.ReferenceSource, maxElapsedTime time.Duration) error {
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.MaxElapsedTime = maxElapsedTime

	return backoff.RetryNotify(
		func() error {
			return network.Hydrate(ctx, reference)
		},
		backoff.WithContext(retryBackoff, ctx),
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("retry", wait.String()).Msg("Failed to hydrate metro network")
		},
	)
}
