package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

func TestBuilder_LinearChain(t *testing.T) {
	b := NewBuilder()

	src := b.Producer("ten", payload.Int(10))
	w := b.Wire("w")
	out := b.Pad("out")
	b.Connect(src, w)
	b.Connect(w, out)

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, g.Nodes.Live())
	assert.Equal(t, []string{"out"}, g.PadNames())

	wn, err := g.Resolve(w)
	require.NoError(t, err)
	assert.Equal(t, KindWire, wn.Kind)
	assert.Equal(t, 1, wn.Inputs.Len())
	assert.Equal(t, src, wn.Inputs.At(0))

	assert.Equal(t, []string{"w"}, nodeNames(g, g.Routes.FanOutStatic(src)))
}

func TestBuilder_PadDeclaredOnce(t *testing.T) {
	b := NewBuilder()

	p1 := b.Pad("clock")
	p2 := b.Pad("clock")
	assert.Equal(t, p1, p2, "re-declaring a pad returns the existing node")

	g, err := b.Build()
	require.NoError(t, err)
	h, ok := g.Pad("clock")
	assert.True(t, ok)
	assert.Equal(t, p1, h)
}

func TestBuilder_ConnectFieldRequiresRouter(t *testing.T) {
	b := NewBuilder()

	w := b.Wire("w")
	sink := b.Wire("sink")
	b.ConnectField(w, "x", sink)

	_, err := b.Build()
	assert.Error(t, err, "field routes only attach to routers")
}

func TestBuilder_SameTickCycleRejected(t *testing.T) {
	b := NewBuilder()

	a := b.Wire("a")
	c := b.Wire("b")
	b.Connect(a, c)
	b.Connect(c, a)

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsTopologyError(err), "cycle must be a construction-time topology error")

	var te *TopologyError
	require.ErrorAs(t, err, &te)
	assert.Len(t, te.Path, 3, "path closes the cycle")
}

func TestBuilder_SelfRouteRejected(t *testing.T) {
	b := NewBuilder()

	w := b.Wire("loop")
	b.Connect(w, w)

	_, err := b.Build()
	assert.True(t, IsTopologyError(err))
}

func TestBuilder_RegisterSelfObservationAllowed(t *testing.T) {
	b := NewBuilder()

	trigger := b.Pad("trigger")
	reg := b.Register("count", payload.Int(0), func(ctx *EvalContext) (payload.Value, error) {
		prev, _ := ctx.Prev().(payload.Int)
		return prev + 1, nil
	})
	b.Connect(trigger, reg)
	b.Observe(reg, reg)

	_, err := b.Build()
	assert.NoError(t, err, "time-shifted self-reference is the sanctioned pattern")
}

func TestBuilder_NonRegisterSelfObservationRejected(t *testing.T) {
	b := NewBuilder()

	tr := b.Transformer("t", func(ctx *EvalContext) (payload.Value, error) {
		return ctx.In(), nil
	})
	b.Observe(tr, tr)

	_, err := b.Build()
	assert.True(t, IsTopologyError(err), "stateless nodes have no time-shift to hide behind")
}

func TestBuilder_MutualRegisterObservationWarnsNotFails(t *testing.T) {
	b := NewBuilder()

	trigger := b.Pad("trigger")
	r1 := b.Register("ping", payload.Int(0), nil)
	r2 := b.Register("pong", payload.Int(0), nil)
	b.Connect(trigger, r1)
	b.Connect(trigger, r2)
	b.Observe(r1, r2)
	b.Observe(r2, r1)

	_, err := b.Build()
	assert.NoError(t, err, "mutual observation is acyclic in time; warn, do not reject")
}

func TestBuilder_CycleThroughRegisterRouteStillRejected(t *testing.T) {
	// A literal routing loop through a register is NOT the sanctioned
	// pattern - self-reference is an observation, never an edge.
	b := NewBuilder()

	reg := b.Register("r", payload.Int(0), nil)
	w := b.Wire("w")
	b.Connect(reg, w)
	b.Connect(w, reg)

	_, err := b.Build()
	assert.True(t, IsTopologyError(err))
}

func TestGraph_RemoveDropsRoutesAndPads(t *testing.T) {
	b := NewBuilder()

	in := b.Pad("in")
	w := b.Wire("w")
	b.Connect(in, w)

	g, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, g.Remove(w))
	assert.Empty(t, g.Routes.FanOutStatic(in))

	_, err = g.Resolve(w)
	assert.Error(t, err)

	require.NoError(t, g.Remove(in))
	_, ok := g.Pad("in")
	assert.False(t, ok)
	assert.Empty(t, g.PadNames())
}

func nodeNames(g *Graph, hs []arena.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		n, err := g.Resolve(h)
		if err != nil {
			out = append(out, h.String())
			continue
		}
		out = append(out, n.Name)
	}
	return out
}
