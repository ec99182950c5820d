package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BoonLang/boon-sub001/internal/arena"
)

// TopologyError is a fatal construction-time violation: a same-tick
// mutual dependency outside the sanctioned time-shift pattern. It blocks
// graph construction; it is never caught at runtime.
type TopologyError struct {
	// Path names the nodes forming the illegal cycle, first repeated last.
	Path    []string
	Message string
}

func (e *TopologyError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("illegal same-tick cycle: %s (%s)", strings.Join(e.Path, " -> "), e.Message)
	}
	return fmt.Sprintf("topology violation: %s", e.Message)
}

// IsTopologyError reports whether err is (or wraps) a TopologyError.
func IsTopologyError(err error) bool {
	var te *TopologyError
	return errors.As(err, &te)
}

// TopologyWarning is a non-fatal diagnostic: the pattern is technically
// acyclic (time-shifted) but confusing, and is surfaced rather than
// silently allowed.
type TopologyWarning struct {
	Path    []string
	Message string
}

// validateTopology rejects cycles in the static routing graph. Every
// static route delivers within the tick it was produced in, so any
// routing cycle is a same-tick mutual dependency - including cycles
// through combiner/register nodes, whose sanctioned self-reference is a
// committed-value observation, never a route.
//
// Uses Tarjan's strongly-connected-components algorithm; an SCC larger
// than one node, or a single node with a self-route, is a cycle.
func validateTopology(g *Graph) error {
	adj := g.Routes.StaticRoutes()

	// Observation declarations are also validated here: only time-shifted
	// kinds may read committed values of themselves or their peers.
	for reader, targets := range g.observations {
		rn, err := g.Nodes.Resolve(reader)
		if err != nil {
			continue
		}
		if rn.Kind.TimeShifted() {
			continue
		}
		for _, target := range targets {
			if target == reader {
				return &TopologyError{
					Path:    []string{rn.Name, rn.Name},
					Message: fmt.Sprintf("%s node reads its own value without time-shift", rn.Kind),
				}
			}
		}
	}

	for _, scc := range tarjanSCC(adj) {
		if len(scc) > 1 {
			return &TopologyError{
				Path:    cyclePath(g, scc),
				Message: "static routes form a cycle; only time-shifted observation may close a loop",
			}
		}
		if len(scc) == 1 && hasSelfRoute(scc[0], adj) {
			return &TopologyError{
				Path:    cyclePath(g, scc),
				Message: "node routes to itself; self-reference must be a time-shifted observation",
			}
		}
	}
	return nil
}

// mutualObservationWarnings finds combiner/register nodes whose declared
// committed-value reads form a loop (two registers reading each other's
// previous value). Acyclic in time, but evaluation order within a tick is
// easy to misread, so it is warned about.
func mutualObservationWarnings(g *Graph) []TopologyWarning {
	adj := make(map[arena.Handle][]arena.Handle, len(g.observations))
	for reader, targets := range g.observations {
		rn, err := g.Nodes.Resolve(reader)
		if err != nil || !rn.Kind.TimeShifted() {
			continue
		}
		for _, target := range targets {
			if target == reader {
				// Plain self-reference is the sanctioned pattern itself.
				continue
			}
			tn, err := g.Nodes.Resolve(target)
			if err != nil || !tn.Kind.TimeShifted() {
				continue
			}
			adj[reader] = append(adj[reader], target)
		}
	}

	var warnings []TopologyWarning
	for _, scc := range tarjanSCC(adj) {
		if len(scc) > 1 {
			warnings = append(warnings, TopologyWarning{
				Path:    cyclePath(g, scc),
				Message: "registers read each other's previous value; evaluation is time-shifted but order is subtle",
			})
		}
	}
	return warnings
}

func hasSelfRoute(h arena.Handle, adj map[arena.Handle][]arena.Handle) bool {
	for _, n := range adj[h] {
		if n == h {
			return true
		}
	}
	return false
}

func cyclePath(g *Graph, scc []arena.Handle) []string {
	path := make([]string, 0, len(scc)+1)
	for _, h := range scc {
		if n, err := g.Nodes.Resolve(h); err == nil && n.Name != "" {
			path = append(path, n.Name)
		} else {
			path = append(path, h.String())
		}
	}
	if len(path) > 0 {
		path = append(path, path[0])
	}
	return path
}

// tarjanSCC finds strongly connected components of the handle graph.
// Components are returned in discovery order; single-node components
// without self-edges are not cycles.
func tarjanSCC(adj map[arena.Handle][]arena.Handle) [][]arena.Handle {
	var (
		index   int
		stack   []arena.Handle
		indices = make(map[arena.Handle]int)
		lowlink = make(map[arena.Handle]int)
		onStack = make(map[arena.Handle]bool)
		sccs    [][]arena.Handle
	)

	var strongconnect func(v arena.Handle)
	strongconnect = func(v arena.Handle) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []arena.Handle
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Deterministic visit order: handles sorted by index then generation.
	roots := make([]arena.Handle, 0, len(adj))
	for h := range adj {
		roots = append(roots, h)
	}
	slices.SortFunc(roots, func(a, b arena.Handle) int {
		if a.Index != b.Index {
			return int(a.Index) - int(b.Index)
		}
		return int(a.Gen) - int(b.Gen)
	})
	for _, h := range roots {
		if _, seen := indices[h]; !seen {
			strongconnect(h)
		}
	}
	return sccs
}
