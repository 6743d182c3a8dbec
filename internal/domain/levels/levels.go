// Package levels applies administrative level updates to a level store.
package levels

import (
	"context"
	"fmt"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
)

// Store is the subset of the snapshot store that mutates levels. Both calls
// clamp the stored level at zero and return the resulting level.
type Store interface {
	AdjustLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, delta int) (int, error)
	SetLevel(ctx context.Context, tournamentID string, id bracket.PlayerID, level int) (int, error)
}

// Applier turns a LevelUpdate into a stored level.
type Applier interface {
	// Apply mutates the player's level, honoring ctx for cancellation, and
	// returns the new level.
	Apply(ctx context.Context, u model.LevelUpdate) (int, error)
}

// Option applies a configuration option to the StoreApplier.
type Option func(*StoreApplier)

// WithMaxLevel caps the level an update may produce. Zero or negative
// disables the cap.
func WithMaxLevel(maxLevel int) Option {
	return func(a *StoreApplier) {
		a.maxLevel = max(maxLevel, 0)
	}
}

// StoreApplier implements Applier on top of a Store.
type StoreApplier struct {
	store    Store
	maxLevel int
}

// NewStoreApplier creates an applier writing to store.
func NewStoreApplier(store Store, opts ...Option) *StoreApplier {
	a := &StoreApplier{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply implements Applier.
func (a *StoreApplier) Apply(ctx context.Context, u model.LevelUpdate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	if err := u.Validate(); err != nil {
		return 0, err
	}

	switch u.Op {
	case model.OpSet:
		if a.capped(u.Value) {
			return 0, fmt.Errorf("%w: set %d above %d", ErrLevelOutOfRange, u.Value, a.maxLevel)
		}
		return a.store.SetLevel(ctx, u.TournamentID, u.PlayerID, u.Value)

	case model.OpDecrement:
		return a.store.AdjustLevel(ctx, u.TournamentID, u.PlayerID, -u.Step())

	default:
		step := u.Step()
		lvl, err := a.store.AdjustLevel(ctx, u.TournamentID, u.PlayerID, step)
		if err != nil {
			return 0, err
		}
		if a.capped(lvl) {
			// undo so the stored level never passes the cap
			if _, err := a.store.AdjustLevel(ctx, u.TournamentID, u.PlayerID, -step); err != nil {
				return 0, fmt.Errorf("revert level of player %d: %w", u.PlayerID, err)
			}
			return 0, fmt.Errorf("%w: increment to %d above %d", ErrLevelOutOfRange, lvl, a.maxLevel)
		}
		return lvl, nil
	}
}

func (a *StoreApplier) capped(level int) bool {
	return a.maxLevel > 0 && level > a.maxLevel
}
