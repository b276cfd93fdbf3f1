package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	for _, k := range []string{"API_BASE_URL", "REFRESH_INTERVAL", "REQUEST_TIMEOUT", "REDIS_DB", "COOKIE_SECURE"} {
		t.Setenv(k, "")
	}

	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", env.APIBaseURL)
	assert.Equal(t, 15*time.Minute, env.RefreshInterval)
	assert.Equal(t, 10*time.Second, env.RequestTimeout)
	assert.Equal(t, 0, env.RedisDB)
	assert.False(t, env.CookieSecure)
}

func TestLoadEnv_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REFRESH_INTERVAL=5m\nREDIS_DB=2\n"), 0o600))

	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("REFRESH_INTERVAL", "")
	t.Setenv("REDIS_DB", "")
	os.Unsetenv("REFRESH_INTERVAL")
	os.Unsetenv("REDIS_DB")

	env, err := LoadEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", env.APIBaseURL)
	assert.Equal(t, 5*time.Minute, env.RefreshInterval)
	assert.Equal(t, 2, env.RedisDB)
}

func TestLoadEnv_Invalid(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("REFRESH_INTERVAL", "soon")
	_, err := LoadEnv(filepath.Join(dir, "none"))
	assert.ErrorContains(t, err, "REFRESH_INTERVAL")

	t.Setenv("REFRESH_INTERVAL", "-1m")
	_, err = LoadEnv(filepath.Join(dir, "none"))
	assert.ErrorContains(t, err, "must be positive")

	t.Setenv("REFRESH_INTERVAL", "")
	t.Setenv("COOKIE_SECURE", "maybe")
	_, err = LoadEnv(filepath.Join(dir, "none"))
	assert.ErrorContains(t, err, "COOKIE_SECURE")
}
