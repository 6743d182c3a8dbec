// Package repository stores tournament seedings and player levels.
package repository

import (
	"context"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
)

// Store provides read/write access to tournament state.
type Store interface {
	// ReplaceMatches swaps the first-round matches of a tournament and
	// registers every player on them. Known players keep their level; new
	// ones start at 0. The tournament exists afterwards even when matches
	// is empty.
	ReplaceMatches(ctx context.Context, tournamentID string, matches []bracket.Match) error

	// Snapshot returns the matches and levels of a tournament.
	// Returns ErrNotFound if the tournament was never seeded.
	Snapshot(ctx context.Context, tournamentID string) (model.Snapshot, error)

	// AdjustLevel adds delta to a player's level, clamping at 0, and returns
	// the new level. Returns ErrPlayerNotFound for unregistered players.
	AdjustLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, delta int) (int, error)

	// SetLevel replaces a player's level, clamping at 0.
	SetLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, level int) (int, error)

	// Tournaments lists known tournament ids in ascending order.
	Tournaments(ctx context.Context) ([]string, error)

	// Count returns the number of tournaments tracked.
	Count(ctx context.Context) int

	Close() error
}

// sidePlayers returns every player listed on either side of m.
func sidePlayers(m bracket.Match) []bracket.Player {
	out := make([]bracket.Player, 0, len(m.SideA)+len(m.SideB))
	out = append(out, m.SideA...)
	return append(out, m.SideB...)
}

func cloneMatches(in []bracket.Match) []bracket.Match {
	out := make([]bracket.Match, len(in))
	for i, m := range in {
		out[i] = bracket.Match{
			ID:    m.ID,
			Round: m.Round,
			SideA: cloneSide(m.SideA),
			SideB: cloneSide(m.SideB),
		}
	}
	return out
}

func cloneSide(in []bracket.Player) []bracket.Player {
	if in == nil {
		return nil
	}
	out := make([]bracket.Player, len(in))
	for i, p := range in {
		out[i] = bracket.Player{ID: p.ID, Name: p.Name, Level: p.Level}
	}
	return out
}

func validateTournamentID(id string) error {
	if id == "" {
		return ErrInvalidTournament
	}
	return nil
}
