package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvironmentVariables(t *testing.T) {
	t.Setenv("METRO_TEST_VALUE", "a=b")

	env := GetEnvironmentVariables()
	assert.Equal(t, "a=b", env["METRO_TEST_VALUE"])
}

func TestGetEnvironmentDuration(t *testing.T) {
	env := map[string]string{"SET": "90s", "BAD": "soon"}

	value, err := GetEnvironmentDuration(env, "SET", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, value)

	value, err = GetEnvironmentDuration(env, "UNSET", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, value)

	_, err = GetEnvironmentDuration(env, "BAD", time.Second)
	assert.Error(t, err)
}
