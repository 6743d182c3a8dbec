package service

import "errors"

var (
	// ErrNotFound is returned for tournaments that were never seeded.
	ErrNotFound = errors.New("tournament not found")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
