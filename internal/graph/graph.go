package graph

import (
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/route"
)

// Graph is a built reactive graph: the node arena, the routing table, and
// the declared I/O pads. It is exclusively owned by one engine loop after
// construction.
type Graph struct {
	Nodes  *arena.Arena[Node]
	Routes *route.Table

	pads     map[string]arena.Handle
	padOrder []string

	// observations are declared committed-value reads (the time-shift
	// pattern): reader observes target's previous value via ctx.Read.
	// They are not routes; they exist for diagnostics and tooling.
	observations map[arena.Handle][]arena.Handle
}

func newGraph() *Graph {
	return &Graph{
		Nodes:        arena.New[Node](),
		Routes:       route.NewTable(),
		pads:         make(map[string]arena.Handle),
		observations: make(map[arena.Handle][]arena.Handle),
	}
}

// Resolve returns the node addressed by h, or a stale-handle error.
func (g *Graph) Resolve(h arena.Handle) (*Node, error) {
	return g.Nodes.Resolve(h)
}

// Pad returns the handle declared under an external channel name.
func (g *Graph) Pad(name string) (arena.Handle, bool) {
	h, ok := g.pads[name]
	return h, ok
}

// PadNames returns the declared pad names in declaration order.
func (g *Graph) PadNames() []string {
	out := make([]string, len(g.padOrder))
	copy(out, g.padOrder)
	return out
}

// Observations returns the declared committed-value reads of a node.
func (g *Graph) Observations(h arena.Handle) []arena.Handle {
	obs := g.observations[h]
	out := make([]arena.Handle, len(obs))
	copy(out, obs)
	return out
}

// Remove tears down a node: frees its arena slot (bumping the
// generation so in-flight messages resolve stale and are dropped) and
// drops every route mentioning it. Teardown is a normal transition, not
// a failure.
func (g *Graph) Remove(h arena.Handle) error {
	n, err := g.Nodes.Resolve(h)
	if err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	if n.Kind == KindPad && n.PadName != "" {
		delete(g.pads, n.PadName)
		for i, name := range g.padOrder {
			if name == n.PadName {
				g.padOrder = append(g.padOrder[:i], g.padOrder[i+1:]...)
				break
			}
		}
	}
	g.Routes.Drop(h)
	delete(g.observations, h)
	return g.Nodes.Free(h)
}
