// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a .env file, a YAML file and BRACKETD_ env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"slices"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory level update queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of update workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the update id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the snapshot store: memory or mongo.
	Store         string `koanf:"store"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// VisibilityThreshold is the progress in (0,1] at which a round is hidden.
	VisibilityThreshold float64 `koanf:"visibility_threshold"`

	// MaxLevel caps player levels. 0 disables the cap.
	MaxLevel int `koanf:"max_level"`

	// RateLimitRPS and RateLimitBurst limit write requests per client IP.
	// An RPS of 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxSearchLimit caps GET /tournaments/{id}/players?limit.
	MaxSearchLimit int `koanf:"max_search_limit"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		Store:               StoreMemory,
		MongoDatabase:       "bracketd",
		VisibilityThreshold: 0.5,
		MaxLevel:            0,
		RateLimitRPS:        50,
		RateLimitBurst:      100,
		MaxSearchLimit:      20,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{StoreMemory, StoreMongo}, c.Store):
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StoreMongo && c.MongoURI == "":
		return fmt.Errorf("%w: mongo_uri is required for the mongo store", ErrInvalidConfig)
	case c.VisibilityThreshold <= 0 || c.VisibilityThreshold > 1:
		return fmt.Errorf("%w: visibility_threshold %v is outside (0,1]", ErrInvalidConfig, c.VisibilityThreshold)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxLevel < 0:
		return fmt.Errorf("%w: max_level must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.MaxSearchLimit < 1:
		return fmt.Errorf("%w: max_search_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
