package bracket

import (
	"fmt"
	"math/bits"
)

// Build reconstructs the full tree from first-round matches and the current
// level of every player. Round 1 always mirrors the original seeding; later
// rounds receive a copy of each player for every match they have won, walked
// round by round along the floor(i/2) pairing so that a level-k player shows
// up in rounds 0..k.
//
// Build never fails. Inconsistent data is skipped, or placed through the
// degraded fallback, and reported in Result.Warnings.
func Build(matches []Match, levels map[PlayerID]int) Result {
	b := &builder{levels: levels, entrants: make(map[PlayerID]Player)}

	seeds := b.seedMatches(matches)
	b.allocate(len(seeds))
	b.seed(seeds)
	b.propagate()

	return Result{Tree: Tree{Rounds: b.rounds}, Warnings: b.warnings}
}

type builder struct {
	levels   map[PlayerID]int
	rounds   [][]Node
	entrants map[PlayerID]Player
	warnings []Warning
}

func (b *builder) warn(kind WarningKind, id PlayerID, round, pos int, format string, args ...any) {
	b.warnings = append(b.warnings, Warning{
		Kind:     kind,
		PlayerID: id,
		Round:    round,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// seedMatches keeps round-1 matches in input order and reports the rest.
func (b *builder) seedMatches(matches []Match) []Match {
	seeds := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Round != 1 {
			b.warn(WarnIgnoredMatch, 0, -1, -1, "match %q is for round %d; only round 1 seeds the bracket", m.ID, m.Round)
			continue
		}
		seeds = append(seeds, m)
	}
	return seeds
}

// RoundCount returns the number of rounds for a first round of n matches,
// including the trailing champion round.
func RoundCount(n int) int {
	n = max(n, minSeedNodes)
	// floor(log2(n)) + 2
	return bits.Len(uint(n)) + 1 //nolint:gosec // n is positive
}

// allocate lays out every round in one backing array and tags each node.
func (b *builder) allocate(matchCount int) {
	n := max(matchCount, minSeedNodes)
	count := RoundCount(n)

	sizes := make([]int, count)
	total := 0
	for r := range count {
		size := (n + (1 << r) - 1) >> r
		if r == count-1 {
			size = 1
		}
		sizes[r] = size
		total += size
	}

	arena := make([]Node, total)
	b.rounds = make([][]Node, count)
	off := 0
	for r, size := range sizes {
		b.rounds[r] = arena[off : off+size : off+size]
		for i := range b.rounds[r] {
			b.rounds[r][i].Round = r + 1
			b.rounds[r][i].Position = i
		}
		off += size
	}
}

func (b *builder) seed(seeds []Match) {
	for i, m := range seeds {
		node := &b.rounds[0][i]
		node.SlotA = b.entrant(m, m.SideA, i, "A")
		node.SlotB = b.entrant(m, m.SideB, i, "B")
	}
}

// entrant turns a match side into the player that represents it. The first
// player of the side is the representative; the rest ride along as partners.
func (b *builder) entrant(m Match, side []Player, pos int, label string) *Player {
	if len(side) == 0 {
		b.warn(WarnEmptySide, 0, 0, pos, "match %q has no players on side %s", m.ID, label)
		return nil
	}
	rep := side[0]
	rep.Partners = nil
	if len(side) > 1 {
		rep.Partners = make([]Player, 0, len(side)-1)
		for _, p := range side[1:] {
			p.Partners = nil
			p.Level = levelOf(b.levels, p.ID)
			rep.Partners = append(rep.Partners, p)
		}
	}
	rep.Level = levelOf(b.levels, rep.ID)

	if _, dup := b.entrants[rep.ID]; dup {
		b.warn(WarnDuplicatePlayer, rep.ID, 0, pos, "player %d appears in more than one first-round match", rep.ID)
	}
	b.entrants[rep.ID] = rep
	return clonePlayer(rep)
}

// propagate places advancing players one round at a time, so that each
// player's previous-round node is already settled when it is looked up.
func (b *builder) propagate() {
	count := len(b.rounds)
	ids := ascendingIDs(b.entrants)

	for _, id := range ids {
		if lvl := b.entrants[id].Level; lvl >= count {
			b.warn(WarnLevelExceedsCapacity, id, -1, -1, "player %d has level %d but the bracket only has %d rounds", id, lvl, count)
		}
	}

	for r := 1; r < count; r++ {
		for _, id := range ids {
			p := b.entrants[id]
			if p.Level < r || p.Level >= count {
				continue
			}
			b.advance(p, r)
		}
	}
}

func (b *builder) advance(p Player, r int) {
	src, ok := b.locate(p.ID, r-1)
	if !ok {
		b.warn(WarnMissingPredecessor, p.ID, r, -1, "player %d has level %d but is not in round %d; using fallback placement", p.ID, p.Level, r-1)
		b.fallback(p, r)
		return
	}

	dst := &b.rounds[r][src/2]
	if !place(dst, p) {
		b.warn(WarnDestinationFull, p.ID, r, dst.Position, "node %d of round %d is already held by two other players", dst.Position, r)
	}
}

// fallback drops the player into the first free slot of round r, ignoring
// the pairing topology.
func (b *builder) fallback(p Player, r int) {
	for i := range b.rounds[r] {
		node := &b.rounds[r][i]
		if node.Full() && !node.Has(p.ID) {
			continue
		}
		place(node, p)
		return
	}
	b.warn(WarnFallbackExhausted, p.ID, r, -1, "no free slot left in round %d for player %d", r, p.ID)
}

func (b *builder) locate(id PlayerID, r int) (int, bool) {
	return Tree{Rounds: b.rounds}.Locate(id, r)
}

// place puts p into the node, overwriting an existing copy of p first and
// otherwise filling SlotA then SlotB. It reports false when both slots
// belong to other players.
func place(n *Node, p Player) bool {
	switch {
	case n.SlotA != nil && n.SlotA.ID == p.ID:
		n.SlotA = clonePlayer(p)
	case n.SlotB != nil && n.SlotB.ID == p.ID:
		n.SlotB = clonePlayer(p)
	case n.SlotA == nil:
		n.SlotA = clonePlayer(p)
	case n.SlotB == nil:
		n.SlotB = clonePlayer(p)
	default:
		return false
	}
	orderSlots(n)
	return true
}
