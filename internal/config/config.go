// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. Process settings live in Config; engine tunables that may change
// while the process runs live in Runtime and are served through a Provider.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// External re-render hook, called after cache invalidation.
	RevalidateURL    string
	RevalidateSecret string

	// SweepInterval drives the in-process trigger for scheduled publishing,
	// stale-lock release and settings refresh. Zero disables it.
	SweepInterval time.Duration

	// Engine tunables, used as defaults before site_settings overrides.
	Runtime Runtime
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a tunable cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "pressroom"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "pressroom"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		RevalidateURL:    os.Getenv("REVALIDATE_URL"),
		RevalidateSecret: os.Getenv("REVALIDATE_SECRET"),
	}

	interval, err := time.ParseDuration(envOrDefault("SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	cfg.SweepInterval = interval

	rt, err := runtimeFromEnv(DefaultRuntime())
	if err != nil {
		return nil, err
	}
	cfg.Runtime = rt

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.RevalidateURL != "" && cfg.RevalidateSecret == "" {
			return nil, fmt.Errorf("REVALIDATE_SECRET must be set when REVALIDATE_URL is configured in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// runtimeFromEnv overlays environment values onto base.
func runtimeFromEnv(base Runtime) (Runtime, error) {
	lookup := func(key string) (string, bool) {
		v := os.Getenv(key)
		return v, v != ""
	}
	return base.apply(lookup, envKeys)
}

// envKeys maps Runtime fields to environment variable names.
var envKeys = keySet{
	LockTimeoutMinutes: "LOCK_TIMEOUT_MINUTES",
	MaxDepth:           "MAX_HIERARCHY_DEPTH",
	MaxRevisions:       "MAX_REVISIONS",
	MaxBatchSize:       "MAX_BULK_BATCH",
	DefaultPageSize:    "DEFAULT_PAGE_SIZE",
	MaxPageSize:        "MAX_PAGE_SIZE",
	WordsPerMinute:     "READING_WPM",
	ExcerptLength:      "EXCERPT_LENGTH",
	CacheTTLSeconds:    "CACHE_TTL_SECONDS",
	ReservedSlugs:      "RESERVED_SLUGS",
	Hierarchy:          "FEATURE_HIERARCHY",
	Locking:            "FEATURE_LOCKING",
	Revisions:          "FEATURE_REVISIONS",
	Scheduling:         "FEATURE_SCHEDULING",
	PasswordProtection: "FEATURE_PASSWORD_PROTECTION",
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}

func parseBool(key, raw string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
