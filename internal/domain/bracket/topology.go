package bracket

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// Topology is the pairing graph of a tree: every node has an edge to the
// node in the next round that its winner plays in.
type Topology struct {
	g     graph.Graph[string, NodeRef]
	final NodeRef
}

func refHash(r NodeRef) string { return r.String() }

// NewTopology derives the pairing graph from the shape of tree.
func NewTopology(tree Tree) (*Topology, error) {
	if tree.RoundCount() == 0 {
		return nil, ErrEmptyTree
	}

	g := graph.New(refHash, graph.Directed())
	for r, round := range tree.Rounds {
		for i := range round {
			if err := g.AddVertex(NodeRef{Round: r, Position: i}); err != nil {
				return nil, fmt.Errorf("add node %d:%d: %w", r, i, err)
			}
		}
	}
	for r := 0; r < tree.RoundCount()-1; r++ {
		next := tree.NodeCount(r+1) - 1
		for i := range tree.Rounds[r] {
			from := NodeRef{Round: r, Position: i}
			to := NodeRef{Round: r + 1, Position: min(i/2, next)}
			if err := g.AddEdge(refHash(from), refHash(to)); err != nil {
				return nil, fmt.Errorf("link %s -> %s: %w", from, to, err)
			}
		}
	}

	return &Topology{g: g, final: NodeRef{Round: tree.RoundCount() - 1}}, nil
}

// Route returns the nodes a winner of from would pass through up to and
// including the champion node.
func (t *Topology) Route(from NodeRef) ([]NodeRef, error) {
	keys, err := graph.ShortestPath(t.g, refHash(from), refHash(t.final))
	if err != nil {
		return nil, fmt.Errorf("route from %s: %w", from, err)
	}
	out := make([]NodeRef, 0, len(keys))
	for _, k := range keys {
		ref, err := t.g.Vertex(k)
		if err != nil {
			return nil, fmt.Errorf("route from %s: %w", from, err)
		}
		out = append(out, ref)
	}
	return out, nil
}

// Adjacent reports whether the winner of from plays next in to.
func (t *Topology) Adjacent(from, to NodeRef) bool {
	_, err := t.g.Edge(refHash(from), refHash(to))
	return err == nil
}

// Feeds reports whether a player in from can ever reach to.
func (t *Topology) Feeds(from, to NodeRef) bool {
	if from == to {
		return true
	}
	_, err := graph.ShortestPath(t.g, refHash(from), refHash(to))
	return err == nil
}

// Path describes where a player has been and where they can still go.
type Path struct {
	PlayerID PlayerID  `json:"player_id"`
	Occupied []NodeRef `json:"occupied"`
	Route    []NodeRef `json:"route"`
	Reached  int       `json:"reached"`
}

// PlayerPath returns the nodes the player occupies and the route from their
// seed node to the champion node.
func PlayerPath(tree Tree, id PlayerID) (Path, error) {
	seed, ok := tree.Locate(id, 0)
	if !ok {
		return Path{}, fmt.Errorf("player %d: %w", id, ErrPlayerNotSeeded)
	}
	topo, err := NewTopology(tree)
	if err != nil {
		return Path{}, err
	}
	route, err := topo.Route(NodeRef{Round: 0, Position: seed})
	if err != nil {
		return Path{}, err
	}

	p := Path{PlayerID: id, Route: route}
	for r := range tree.RoundCount() {
		if pos, ok := tree.Locate(id, r); ok {
			p.Occupied = append(p.Occupied, NodeRef{Round: r, Position: pos})
			p.Reached = r
		}
	}
	return p, nil
}

// Verify reports every placed copy beyond round 1 that does not follow from
// the player's node in the previous round. A clean Build only produces
// such copies through the fallback placement.
func Verify(tree Tree) []Warning {
	topo, err := NewTopology(tree)
	if err != nil {
		if errors.Is(err, ErrEmptyTree) {
			return nil
		}
		return []Warning{{Kind: WarnTopologyViolation, Round: -1, Position: -1, Message: err.Error()}}
	}

	var out []Warning
	for r := 1; r < tree.RoundCount(); r++ {
		for i := range tree.Rounds[r] {
			to := NodeRef{Round: r, Position: i}
			for _, p := range tree.Rounds[r][i].Players() {
				pos, ok := tree.Locate(p.ID, r-1)
				if ok && topo.Adjacent(NodeRef{Round: r - 1, Position: pos}, to) {
					continue
				}
				out = append(out, Warning{
					Kind:     WarnTopologyViolation,
					PlayerID: p.ID,
					Round:    r,
					Position: i,
					Message:  fmt.Sprintf("player %d in node %s does not come from a feeding node in round %d", p.ID, to, r-1),
				})
			}
		}
	}
	return out
}
