// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/bracketd/internal/domain/bracket"
)

// Op is the kind of mutation a LevelUpdate applies.
type Op string

const (
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
	OpSet       Op = "set"
)

// Valid reports whether o is a known op.
func (o Op) Valid() bool {
	switch o {
	case OpIncrement, OpDecrement, OpSet:
		return true
	}
	return false
}

// LevelUpdate is an administrative change to one player's level.
// Fields mirror the OpenAPI schema for /tournaments/{id}/levels.
type LevelUpdate struct {
	UpdateID     string           `json:"update_id"` // unique id for idempotency
	TournamentID string           `json:"tournament_id"`
	PlayerID     bracket.PlayerID `json:"player_id"`
	Op           Op               `json:"op"`
	Value        int              `json:"value"` // step for increment/decrement, target for set
	TS           time.Time        `json:"ts"`
}

// Validate checks the fields required before an update is queued.
func (u LevelUpdate) Validate() error {
	switch {
	case u.UpdateID == "":
		return ErrMissingUpdateID
	case u.TournamentID == "":
		return ErrMissingTournamentID
	case !u.Op.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownOp, u.Op)
	case u.Value < 0:
		return fmt.Errorf("%w: %d", ErrNegativeValue, u.Value)
	}
	return nil
}

// Step returns the magnitude of an increment or decrement. A zero value
// means a single step.
func (u LevelUpdate) Step() int {
	if u.Value == 0 {
		return 1
	}
	return u.Value
}

// Snapshot is a consistent read of one tournament: its first-round matches
// and the current level of every registered player.
type Snapshot struct {
	TournamentID string
	Matches      []bracket.Match
	Levels       map[bracket.PlayerID]int
	TakenAt      time.Time
}
