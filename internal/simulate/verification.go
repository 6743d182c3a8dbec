package simulate

import (
	"fmt"
	"slices"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/types"
)

// verify compares the served view with a bracket built locally from the
// plan.
func verify(plan Plan, threshold float64, v types.BracketView) error {
	levels := plan.Levels()
	want := bracket.Build(plan.Matches, levels)
	visible := bracket.VisibleRounds(want.Tree, levels, bracket.WithThreshold(threshold))

	switch {
	case v.Champion == nil:
		return fmt.Errorf("%w: no champion", ErrUnexpectedView)
	case v.Champion.ID != plan.Champion():
		return fmt.Errorf("%w: champion %d, want %d", ErrUnexpectedView, v.Champion.ID, plan.Champion())
	case len(v.Warnings) > 0:
		return fmt.Errorf("%w: %d warnings, first %q", ErrUnexpectedView, len(v.Warnings), v.Warnings[0].Message)
	case !slices.Equal(v.VisibleRounds, visible):
		return fmt.Errorf("%w: visible rounds %v, want %v", ErrUnexpectedView, v.VisibleRounds, visible)
	case !slices.Contains(v.VisibleRounds, len(v.Rounds)-1):
		return fmt.Errorf("%w: champion round is hidden", ErrUnexpectedView)
	}

	served := bracket.Tree{Rounds: v.Rounds}
	if served.RoundCount() != want.Tree.RoundCount() {
		return fmt.Errorf("%w: %d rounds, want %d", ErrUnexpectedView, served.RoundCount(), want.Tree.RoundCount())
	}
	for r := range want.Tree.Rounds {
		if got, exp := occupants(served, r), occupants(want.Tree, r); !slices.Equal(got, exp) {
			return fmt.Errorf("%w: round %d holds %v, want %v", ErrUnexpectedView, r+1, got, exp)
		}
	}
	return nil
}

// occupants flattens round r into slot order, 0 for an empty slot.
func occupants(t bracket.Tree, r int) []bracket.PlayerID {
	out := make([]bracket.PlayerID, 0, 2*t.NodeCount(r))
	for i := range t.Rounds[r] {
		n := t.Rounds[r][i]
		for _, s := range []*bracket.Player{n.SlotA, n.SlotB} {
			if s == nil {
				out = append(out, 0)
				continue
			}
			out = append(out, s.ID)
		}
	}
	return out
}
