package bracket

import (
	"maps"
	"slices"
	"strings"
)

// lessByName orders players by display name, ignoring case first so that
// "alice" and "Bob" sort the way people read them. Exact name and then id
// break remaining ties so the order is total.
func lessByName(a, b *Player) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// orderSlots swaps a full node's slots when SlotB sorts before SlotA.
func orderSlots(n *Node) {
	if n.Full() && lessByName(n.SlotB, n.SlotA) {
		n.SlotA, n.SlotB = n.SlotB, n.SlotA
	}
}

// levelOf reads a level from the map, treating absent and negative values as 0.
func levelOf(levels map[PlayerID]int, id PlayerID) int {
	lvl, ok := levels[id]
	if !ok || lvl < 0 {
		return 0
	}
	return lvl
}

// ascendingIDs returns the keys of m in ascending order.
func ascendingIDs[V any](m map[PlayerID]V) []PlayerID {
	return slices.Sorted(maps.Keys(m))
}

// clonePlayer returns a copy that shares nothing with p.
func clonePlayer(p Player) *Player {
	c := p
	if len(p.Partners) > 0 {
		c.Partners = slices.Clone(p.Partners)
	}
	return &c
}
