package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	// Client
	APIBaseURL      string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
	LogFormat       string

	// Dev backend
	Port            string
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	RedisAddr       string
	RedisPass       string
	RedisDB         int
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool
}

// LoadEnv reads an optional .env file from the working directory and then
// the process environment. Variables already set in the environment win.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	env := &Env{
		APIBaseURL: getString("API_BASE_URL", "http://localhost:3000"),
		LogLevel:   getString("LOG_LEVEL", "info"),
		LogFormat:  getString("LOG_FORMAT", "text"),
		Port:       getString("PORT", "3000"),
		DBHost:     getString("DB_HOST", "localhost"),
		DBUser:     getString("DB_USER", "postgres"),
		DBPassword: getString("DB_PASSWORD", ""),
		DBName:     getString("DB_NAME", "auth"),
		DBPort:     getString("DB_PORT", "5432"),
		RedisAddr:  getString("REDIS_ADDR", ""),
		RedisPass:  getString("REDIS_PASSWORD", ""),
	}

	var err error
	if env.RefreshInterval, err = getDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if env.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if env.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if env.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if env.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if env.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}

	if env.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", env.RefreshInterval)
	}

	return env, nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
