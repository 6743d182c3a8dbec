package bracket

import "slices"

// DefaultThreshold is the share of advanced players at which a round is
// considered resolved and collapsed.
const DefaultThreshold = 0.5

type visibility struct {
	threshold float64
}

// VisibilityOption configures VisibleRounds.
type VisibilityOption func(*visibility)

// WithThreshold overrides the progress ratio at which a round is hidden.
// Values outside (0, 1] are ignored.
func WithThreshold(t float64) VisibilityOption {
	return func(v *visibility) {
		if t > 0 && t <= 1 {
			v.threshold = t
		}
	}
}

// VisibleRounds returns the ascending 0-based indices of the rounds that
// should be rendered.
//
// A round stays visible while fewer than threshold of its slots have been
// won past (players whose level exceeds the round index). When only one
// round survives, the round after it is added for context, and the final
// round is always shown once a champion slot is occupied.
func VisibleRounds(tree Tree, levels map[PlayerID]int, opts ...VisibilityOption) []int {
	v := visibility{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&v)
	}

	count := tree.RoundCount()
	if count == 0 {
		return []int{}
	}

	current := currentLevels(tree, levels)

	visible := make([]int, 0, count)
	for r := range count {
		if progress(tree.NodeCount(r), current, r) < v.threshold {
			visible = append(visible, r)
		}
	}

	if len(visible) == 1 && visible[0]+1 < count {
		visible = append(visible, visible[0]+1)
	}

	last := count - 1
	if final := tree.Final(); final != nil && final.Occupied() && !slices.Contains(visible, last) {
		visible = append(visible, last)
	}

	slices.Sort(visible)
	return visible
}

// Progress returns the ratio of players past the 0-based round r to the
// round's slot capacity.
func Progress(tree Tree, levels map[PlayerID]int, r int) float64 {
	return progress(tree.NodeCount(r), currentLevels(tree, levels), r)
}

func progress(nodes int, current []int, r int) float64 {
	expected := nodes * slotsPerNode
	if expected == 0 {
		return 0
	}
	advanced := 0
	for _, lvl := range current {
		if lvl > r {
			advanced++
		}
	}
	return float64(advanced) / float64(expected)
}

// currentLevels resolves the level of every seeded player, preferring the
// supplied map over the value captured in the tree.
func currentLevels(tree Tree, levels map[PlayerID]int) []int {
	seeds := tree.Seeds()
	out := make([]int, 0, len(seeds))
	for _, p := range seeds {
		lvl := p.Level
		if l, ok := levels[p.ID]; ok {
			lvl = max(l, 0)
		}
		out = append(out, lvl)
	}
	return out
}
