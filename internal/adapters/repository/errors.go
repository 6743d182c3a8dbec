package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("tournament not found")
	ErrPlayerNotFound    = errors.New("player not registered in tournament")
	ErrInvalidTournament = errors.New("tournament id is required")
	ErrClosed            = errors.New("store is closed")
)
