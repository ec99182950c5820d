package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

func TestBuildGraphAndLookup(t *testing.T) {
	g := BuildGraph(t, func(b *graph.Builder) {
		p := b.Producer("seed", payload.Int(1))
		out := b.Pad("display")
		b.Connect(p, out)
	})

	n := NodeByName(t, g, "seed")
	assert.Equal(t, graph.KindProducer, n.Kind)

	h := HandleByName(t, g, "display")
	resolved, err := g.Resolve(h)
	assert.NoError(t, err)
	assert.Equal(t, "display", resolved.Name)
}
