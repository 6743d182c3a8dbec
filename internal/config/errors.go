package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid bracketd config")
	// ErrLoadConfig wraps failures reading the .env file, the YAML file or the environment.
	ErrLoadConfig = errors.New("loading bracketd config")
)
