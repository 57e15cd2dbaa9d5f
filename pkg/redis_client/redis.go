package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/travigo/tyne-and-wear-metro/pkg/util"
)

var Client *redis.Client

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

type Options struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

// OptionsFromEnvironment reads the METRO_REDIS_* variables. It returns false
// when no address is configured, in which case Redis is not used at all.
func OptionsFromEnvironment() (Options, bool, error) {
	options := Options{
		Address:  defaultConnectionAddress,
		Password: defaultConnectionPassword,
		Database: defaultDatabase,
	}

	env := util.GetEnvironmentVariables()

	if env["METRO_REDIS_ADDRESS"] == "" {
		return options, false, nil
	}
	options.Address = env["METRO_REDIS_ADDRESS"]

	if env["METRO_REDIS_PASSWORD"] != "" {
		options.Password = env["METRO_REDIS_PASSWORD"]
	}

	if env["METRO_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["METRO_REDIS_DATABASE"]); err == nil {
			options.Database = n
		} else {
			return options, true, err
		}
	}

	return options, true, nil
}

func Connect(ctx context.Context, options Options) error {
	if options.Address == "" {
		options.Address = defaultConnectionAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.Database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	Client = client

	return nil
}
