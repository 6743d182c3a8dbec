// Package bracket reconstructs single-elimination trees from first-round
// matches and per-player levels, and decides which rounds stay visible.
//
// Both Build and VisibleRounds are pure: they hold no state between calls,
// perform no I/O and never log. Data inconsistencies are reported as
// Warnings on the returned Result instead.
package bracket

import "fmt"

// Bracket shape constants.
const (
	minSeedNodes = 4 // smallest supported first round
	slotsPerNode = 2
)

// PlayerID identifies a registered player.
type PlayerID int

// Player is a registered participant. Level counts the matches the player
// has won: 0 means still in (or eliminated in) round 1.
type Player struct {
	ID       PlayerID `json:"id"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Partners []Player `json:"partners,omitempty"`
}

// Match is a scheduled pairing. Only Round == 1 matches seed the tree.
type Match struct {
	ID    string   `json:"id"`
	Round int      `json:"round"`
	SideA []Player `json:"side_a"`
	SideB []Player `json:"side_b"`
}

// Node is one slot pair of the tree. Round is 1-based, Position 0-based.
type Node struct {
	Round    int     `json:"round"`
	Position int     `json:"position"`
	SlotA    *Player `json:"slot_a"`
	SlotB    *Player `json:"slot_b"`
}

// Has reports whether the node holds the player in either slot.
func (n *Node) Has(id PlayerID) bool {
	return (n.SlotA != nil && n.SlotA.ID == id) || (n.SlotB != nil && n.SlotB.ID == id)
}

// Occupied reports whether at least one slot is filled.
func (n *Node) Occupied() bool { return n.SlotA != nil || n.SlotB != nil }

// Full reports whether both slots are filled.
func (n *Node) Full() bool { return n.SlotA != nil && n.SlotB != nil }

// Players returns the filled slots in slot order.
func (n *Node) Players() []Player {
	out := make([]Player, 0, slotsPerNode)
	if n.SlotA != nil {
		out = append(out, *n.SlotA)
	}
	if n.SlotB != nil {
		out = append(out, *n.SlotB)
	}
	return out
}

// NodeRef addresses a node by 0-based round index and position.
type NodeRef struct {
	Round    int `json:"round"`
	Position int `json:"position"`
}

func (r NodeRef) String() string { return fmt.Sprintf("%d:%d", r.Round, r.Position) }

// Tree is an ordered sequence of rounds. It must be treated as read-only
// once returned by Build.
type Tree struct {
	Rounds [][]Node `json:"rounds"`
}

// RoundCount returns the number of rounds.
func (t Tree) RoundCount() int { return len(t.Rounds) }

// NodeCount returns the number of nodes in the 0-based round r, or 0 when r
// is out of range.
func (t Tree) NodeCount(r int) int {
	if r < 0 || r >= len(t.Rounds) {
		return 0
	}
	return len(t.Rounds[r])
}

// Final returns the champion node, or nil for an empty tree.
func (t Tree) Final() *Node {
	if len(t.Rounds) == 0 {
		return nil
	}
	last := t.Rounds[len(t.Rounds)-1]
	if len(last) == 0 {
		return nil
	}
	return &last[0]
}

// Locate returns the position of the player in the 0-based round r.
func (t Tree) Locate(id PlayerID, r int) (int, bool) {
	if r < 0 || r >= len(t.Rounds) {
		return 0, false
	}
	for i := range t.Rounds[r] {
		if t.Rounds[r][i].Has(id) {
			return i, true
		}
	}
	return 0, false
}

// Seeds returns the distinct players of round 1 in node and slot order.
func (t Tree) Seeds() []Player {
	if len(t.Rounds) == 0 {
		return nil
	}
	seen := make(map[PlayerID]struct{})
	var out []Player
	for i := range t.Rounds[0] {
		for _, p := range t.Rounds[0][i].Players() {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// WarningKind classifies a skipped or degraded placement.
type WarningKind string

// Warning kinds.
const (
	WarnIgnoredMatch         WarningKind = "ignored_match"
	WarnEmptySide            WarningKind = "empty_side"
	WarnDuplicatePlayer      WarningKind = "duplicate_player"
	WarnLevelExceedsCapacity WarningKind = "level_exceeds_capacity"
	WarnDestinationFull      WarningKind = "destination_full"
	WarnMissingPredecessor   WarningKind = "missing_predecessor"
	WarnFallbackExhausted    WarningKind = "fallback_exhausted"
	WarnTopologyViolation    WarningKind = "topology_violation"
)

// Warning records a data inconsistency found while building or verifying.
// Round is the 0-based round index the warning refers to, or -1 if none.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	PlayerID PlayerID    `json:"player_id,omitempty"`
	Round    int         `json:"round"`
	Position int         `json:"position"`
	Message  string      `json:"message"`
}

// Result is what Build returns.
type Result struct {
	Tree     Tree      `json:"tree"`
	Warnings []Warning `json:"warnings"`
}

// HasWarning reports whether any warning of kind k was recorded.
func (r Result) HasWarning(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}
