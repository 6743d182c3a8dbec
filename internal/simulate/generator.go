package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/bracketd/internal/domain/bracket"
	"github.com/okian/bracketd/internal/domain/model"
)

// Plan is a scripted tournament: the seeded first round and the winner of
// every node in play order.
type Plan struct {
	Players []bracket.Player
	Matches []bracket.Match
	// Winners[r][i] wins node i of the 0-based round r.
	Winners [][]bracket.PlayerID
}

// NewPlan seeds n players into n/2 first-round matches and draws the winner
// of every match with rng. n must be a power of two.
func NewPlan(n int, rng *rand.Rand) Plan {
	p := Plan{Players: make([]bracket.Player, n)}
	for i := range n {
		p.Players[i] = bracket.Player{ID: bracket.PlayerID(i + 1), Name: fmt.Sprintf("player-%04d", i+1)}
	}

	prev := make([]bracket.PlayerID, 0, n/2)
	for i := 0; i < n; i += 2 {
		a, b := p.Players[i], p.Players[i+1]
		p.Matches = append(p.Matches, bracket.Match{
			ID:    fmt.Sprintf("r1-m%d", i/2+1),
			Round: 1,
			SideA: []bracket.Player{a},
			SideB: []bracket.Player{b},
		})
		prev = append(prev, pick(rng, a.ID, b.ID))
	}
	p.Winners = append(p.Winners, prev)

	for len(prev) > 1 {
		next := make([]bracket.PlayerID, 0, len(prev)/2)
		for i := 0; i < len(prev); i += 2 {
			next = append(next, pick(rng, prev[i], prev[i+1]))
		}
		p.Winners = append(p.Winners, next)
		prev = next
	}
	return p
}

func pick(rng *rand.Rand, a, b bracket.PlayerID) bracket.PlayerID {
	if rng.IntN(2) == 0 {
		return a
	}
	return b
}

// Champion returns the winner of the final match.
func (p Plan) Champion() bracket.PlayerID {
	last := p.Winners[len(p.Winners)-1]
	return last[0]
}

// Levels returns the level of every player once the whole plan is played.
func (p Plan) Levels() map[bracket.PlayerID]int {
	levels := make(map[bracket.PlayerID]int, len(p.Players))
	for _, pl := range p.Players {
		levels[pl.ID] = 0
	}
	for r, winners := range p.Winners {
		for _, id := range winners {
			levels[id] = r + 1
		}
	}
	return levels
}

// Updates returns one increment per winner of the 0-based round r.
func (p Plan) Updates(tournament string, r int) []model.LevelUpdate {
	out := make([]model.LevelUpdate, 0, len(p.Winners[r]))
	for _, id := range p.Winners[r] {
		out = append(out, model.LevelUpdate{
			UpdateID:     uuid.NewString(),
			TournamentID: tournament,
			PlayerID:     id,
			Op:           model.OpIncrement,
		})
	}
	return out
}
