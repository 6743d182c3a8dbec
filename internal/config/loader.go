package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "BRACKETD_"
	defaultEnv = ".env"
)

// Load builds a Config by layering defaults, an optional .env file, an
// optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. .env file (BRACKETD_ENV_FILE, default ".env") if it exists
//  3. file (YAML) if BRACKETD_CONFIG is set
//  4. env (prefix BRACKETD_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if err := loadDotEnv(k, envOr("BRACKETD_ENV_FILE", defaultEnv)); err != nil {
		return nil, err
	}

	if path := os.Getenv("BRACKETD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: BRACKETD_ADDR, BRACKETD_QUEUE_SIZE, ...
	// map to flat keys that match the koanf tags on the struct.
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv copies the BRACKETD_ entries of a .env file into k without
// touching the process environment, so real env vars still win.
func loadDotEnv(k *koanf.Koanf, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	for name, value := range vars {
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}
		if err := k.Set(envKey(name), value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoadConfig, name, err)
		}
	}
	return nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
