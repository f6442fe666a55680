// Package config loads the catalog service configuration from the
// environment. Every variable is prefixed with CATALOG_ except APP_ENV.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	// Env is the deployment environment: development, production or test.
	Env string

	Port     int
	DataFile string

	// Watch enables reloading the data file on external changes. It
	// defaults to off in the test environment.
	Watch        bool
	PollInterval time.Duration

	LogLevel string

	RateLimit  int
	RateWindow time.Duration

	// TrustProxy is set when the server sits behind a reverse proxy that
	// appends the client address to X-Forwarded-For.
	TrustProxy bool

	MetricsEnabled bool
	MetricsToken   string

	QueryCacheSize int

	ShutdownTimeout time.Duration
}

func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

func (c *Config) Development() bool { return c.Env == EnvDevelopment }

// Load reads the configuration. Malformed values are errors rather than
// silently replaced by defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Env = getEnv("APP_ENV", EnvProduction)
	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return nil, fmt.Errorf("APP_ENV: unknown environment %q", cfg.Env)
	}

	if cfg.Port, err = getEnvInt("CATALOG_PORT", 8082); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CATALOG_PORT: %d out of range", cfg.Port)
	}

	cfg.DataFile = getEnv("CATALOG_DATA_FILE", "data/items.json")

	if cfg.Watch, err = getEnvBool("CATALOG_WATCH", cfg.Env != EnvTest); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvDuration("CATALOG_POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getEnv("CATALOG_LOG_LEVEL", "info"))

	if cfg.RateLimit, err = getEnvInt("CATALOG_RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.RateWindow, err = getEnvDuration("CATALOG_RATE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = getEnvBool("CATALOG_TRUST_PROXY", false); err != nil {
		return nil, err
	}

	if cfg.MetricsEnabled, err = getEnvBool("CATALOG_METRICS_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.MetricsToken = os.Getenv("CATALOG_METRICS_TOKEN")

	if cfg.QueryCacheSize, err = getEnvInt("CATALOG_QUERY_CACHE_SIZE", 256); err != nil {
		return nil, err
	}

	if cfg.ShutdownTimeout, err = getEnvDuration("CATALOG_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", k, v)
	}
	return n, nil
}

func getEnvBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", k, v)
	}
	return b, nil
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", k, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive", k)
	}
	return d, nil
}
