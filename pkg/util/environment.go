package util

import (
	"os"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// GetEnvironmentDuration parses a duration such as "45s" from the named
// variable, returning fallback when it is unset.
func GetEnvironmentDuration(env map[string]string, name string, fallback time.Duration) (time.Duration, error) {
	value := env[name]
	if value == "" {
		return fallback, nil
	}

	return time.ParseDuration(value)
}
