package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/travigo/tyne-and-wear-metro/pkg/coordinator"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"github.com/travigo/tyne-and-wear-metro/pkg/redis_client"
	"github.com/travigo/tyne-and-wear-metro/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval = 45 * time.Second
	DefaultListen       = ":8080"
)

type Config struct {
	APIBase      string `yaml:"api_base"`
	Listen       string `yaml:"listen"`
	ReferenceDir string `yaml:"reference_dir"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	SubscriptionTTL time.Duration `yaml:"subscription_ttl"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxConcurrency  int           `yaml:"max_concurrency"`

	// Redis is only used for the reference data cache and is optional.
	Redis             *redis_client.Options `yaml:"redis"`
	ReferenceCacheTTL time.Duration         `yaml:"reference_cache_ttl"`

	Tracked []coordinator.TrackedPlatform `yaml:"tracked"`
}

func defaultConfig() Config {
	return Config{
		APIBase:         feed.DefaultAPIBase,
		Listen:          DefaultListen,
		PollInterval:    DefaultPollInterval,
		RefreshInterval: coordinator.DefaultRefreshInterval,
		SubscriptionTTL: coordinator.DefaultSubscriptionTTL,
		RequestTimeout:  coordinator.DefaultRequestTimeout,
		MaxConcurrency:  coordinator.DefaultMaxConcurrency,
	}
}

// Load builds the configuration from the defaults, then the YAML file named
// by METRO_CONFIG, then the METRO_* environment variables.
func Load() (Config, error) {
	cfg := defaultConfig()
	env := util.GetEnvironmentVariables()

	if path := env["METRO_CONFIG"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if env["METRO_API_BASE"] != "" {
		cfg.APIBase = env["METRO_API_BASE"]
	}
	if env["METRO_LISTEN"] != "" {
		cfg.Listen = env["METRO_LISTEN"]
	}
	if env["METRO_REFERENCE_DIR"] != "" {
		cfg.ReferenceDir = env["METRO_REFERENCE_DIR"]
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"METRO_POLL_INTERVAL", &cfg.PollInterval},
		{"METRO_REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"METRO_SUBSCRIPTION_TTL", &cfg.SubscriptionTTL},
		{"METRO_REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"METRO_REFERENCE_CACHE_TTL", &cfg.ReferenceCacheTTL},
	}
	for _, d := range durations {
		value, err := util.GetEnvironmentDuration(env, d.name, *d.target)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = value
	}

	redisOptions, redisConfigured, err := redis_client.OptionsFromEnvironment()
	if err != nil {
		return cfg, fmt.Errorf("redis config: %w", err)
	}
	if redisConfigured {
		cfg.Redis = &redisOptions
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if c.SubscriptionTTL <= 0 {
		return errors.New("subscription ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	for i, tracked := range c.Tracked {
		if tracked.Station == "" {
			return fmt.Errorf("tracked[%d]: station is required", i)
		}
		if tracked.Platform == "" && tracked.Destination == "" {
			return fmt.Errorf("tracked[%d]: platform or destination is required", i)
		}
	}

	return nil
}
