// Package testutil provides shared helpers for building graph fixtures
// in tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/graph"
)

// BuildGraph constructs a graph from a builder function and fails the
// test on validation errors.
func BuildGraph(t *testing.T, fn func(b *graph.Builder)) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	fn(b)
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

// NodeByName finds a node by name, failing the test if it is missing.
func NodeByName(t *testing.T, g *graph.Graph, name string) *graph.Node {
	t.Helper()
	var found *graph.Node
	g.Nodes.Range(func(_ arena.Handle, n *graph.Node) bool {
		if n.Name == name {
			found = n
			return false
		}
		return true
	})
	require.NotNil(t, found, "no node named %q", name)
	return found
}

// HandleByName finds a node's handle by name, failing the test if it is
// missing.
func HandleByName(t *testing.T, g *graph.Graph, name string) arena.Handle {
	t.Helper()
	var found arena.Handle
	g.Nodes.Range(func(h arena.Handle, n *graph.Node) bool {
		if n.Name == name {
			found = h
			return false
		}
		return true
	})
	require.False(t, found.IsZero(), "no node named %q", name)
	return found
}
