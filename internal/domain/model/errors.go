package model

import "errors"

// Validation errors for LevelUpdate.
var (
	ErrMissingUpdateID     = errors.New("update_id is required")
	ErrMissingTournamentID = errors.New("tournament_id is required")
	ErrUnknownOp           = errors.New("unknown op")
	ErrNegativeValue       = errors.New("value must not be negative")
)
