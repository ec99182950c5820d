package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
	"github.com/BoonLang/boon-sub001/internal/testutil"
)

func busFixture(t *testing.T) (*Engine, *[]Effect, *[]Effect) {
	g := testutil.BuildGraph(t, func(b *graph.Builder) {
		in := b.Pad("changes")
		bus := b.Bus("todos")
		all := b.Pad("list-view")
		first := b.Pad("first-view")
		b.Connect(in, bus)
		b.Connect(bus, all)
		b.ConnectElement(bus, "todo-1", first)
	})
	e := New(g)
	return e, collectEffects(e, "list-view"), collectEffects(e, "first-view")
}

func TestBusElementUpsert(t *testing.T) {
	e, all, first := busFixture(t)

	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Text("buy milk")})
	require.NoError(t, e.RunTick(context.Background()))

	// Whole-bus subscribers get the delta; the keyed subscriber gets the
	// element value itself.
	require.Len(t, *all, 1)
	d, ok := (*all)[0].Payload.(payload.ListDelta)
	require.True(t, ok)
	assert.Equal(t, int64(0), d.Base)
	require.Len(t, d.Ops, 1)
	assert.Equal(t, payload.OpInsert, d.Ops[0].Op)

	require.Len(t, *first, 1)
	assert.Equal(t, payload.Text("buy milk"), (*first)[0].Payload)

	// Same key again is a replace, chained on the new version.
	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Text("buy oat milk")})
	require.NoError(t, e.RunTick(context.Background()))

	require.Len(t, *all, 2)
	d2 := (*all)[1].Payload.(payload.ListDelta)
	assert.Equal(t, d.Next, d2.Base)
	assert.Equal(t, payload.OpReplace, d2.Ops[0].Op)
	require.Len(t, *first, 2)

	bus := testutil.NodeByName(t, e.Graph(), "todos")
	require.Len(t, bus.Elements, 1)
	assert.Equal(t, payload.Text("buy oat milk"), bus.Elements[0].Value)
}

func TestBusRemoveSkipsKeyedSubscriber(t *testing.T) {
	e, all, first := busFixture(t)

	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Text("x")})
	require.NoError(t, e.RunTick(context.Background()))
	e.InjectExternal("changes", payload.ListDelta{
		Ops: []payload.ListOp{{Op: payload.OpRemove, Key: "todo-1"}},
	})
	require.NoError(t, e.RunTick(context.Background()))

	// Removal reaches whole-bus subscribers but never re-fires the
	// removed element's subscriber.
	assert.Len(t, *all, 2)
	assert.Len(t, *first, 1)
	assert.Empty(t, testutil.NodeByName(t, e.Graph(), "todos").Elements)
}

func TestBusWholesaleReplaceResetsChain(t *testing.T) {
	e, all, _ := busFixture(t)

	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Text("x")})
	require.NoError(t, e.RunTick(context.Background()))
	e.InjectExternal("changes", payload.List{
		{Key: "todo-2", Value: payload.Text("a")},
		{Key: "todo-3", Value: payload.Text("b")},
	})
	require.NoError(t, e.RunTick(context.Background()))

	require.Len(t, *all, 2)
	full, ok := (*all)[1].Payload.(payload.List)
	require.True(t, ok)
	assert.Len(t, full, 2)

	bus := testutil.NodeByName(t, e.Graph(), "todos")
	assert.Empty(t, bus.DeltaLog)
}

func TestBusDeltaHistoryWindow(t *testing.T) {
	e, _, _ := busFixture(t)
	e.deltaHistory = 3

	for i := 0; i < 5; i++ {
		e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Int(i)})
		require.NoError(t, e.RunTick(context.Background()))
	}

	bus := testutil.NodeByName(t, e.Graph(), "todos")
	require.Len(t, bus.DeltaLog, 3)
	assert.Equal(t, int64(2), bus.DeltaLog[0].Base)
}

func TestWireDeltaMirrorAndGapResync(t *testing.T) {
	g := testutil.BuildGraph(t, func(b *graph.Builder) {
		in := b.Pad("changes")
		bus := b.Bus("todos")
		w := b.Wire("feed")
		out := b.Pad("view")
		b.Connect(in, bus)
		b.Connect(bus, w)
		b.Connect(w, out)
	})
	e := New(g)
	view := collectEffects(e, "view")

	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Text("x")})
	require.NoError(t, e.RunTick(context.Background()))

	// The wire forwards the delta and keeps a full mirror alongside it.
	bus := testutil.NodeByName(t, e.Graph(), "todos")
	wire := testutil.NodeByName(t, e.Graph(), "feed")
	require.Len(t, *view, 1)
	_, ok := (*view)[0].Payload.(payload.ListDelta)
	assert.True(t, ok)
	assert.Equal(t, bus.Elements, wire.Elements)
	assert.Equal(t, bus.Version, wire.Version)

	// A stale mirror version means the next delta no longer chains. The
	// wire must recover wholesale from the bus and emit the full value.
	wire.Version--

	e.InjectExternal("changes", payload.Element{Key: "todo-2", Value: payload.Text("y")})
	require.NoError(t, e.RunTick(context.Background()))

	require.Len(t, *view, 2)
	full, ok := (*view)[1].Payload.(payload.List)
	require.True(t, ok, "gap recovery emits the full value, not a delta")
	assert.Equal(t, bus.Elements, full)
	assert.Equal(t, bus.Elements, wire.Elements)
	assert.Equal(t, bus.Version, wire.Version)
}

func TestDeltasSince(t *testing.T) {
	e, _, _ := busFixture(t)

	for i := 0; i < 4; i++ {
		e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Int(i)})
		require.NoError(t, e.RunTick(context.Background()))
	}

	busHandle := testutil.HandleByName(t, e.Graph(), "todos")

	// Inside the window: replayable chain from the consumer's version.
	deltas, ok := e.DeltasSince(busHandle, 2)
	require.True(t, ok)
	require.Len(t, deltas, 2)
	assert.Equal(t, int64(2), deltas[0].Base)
	assert.Equal(t, int64(4), deltas[1].Next)

	// Already current: nothing to replay.
	deltas, ok = e.DeltasSince(busHandle, 4)
	require.True(t, ok)
	assert.Empty(t, deltas)

	// Outside the window: the consumer must take the full value.
	e.deltaHistory = 0
	e.InjectExternal("changes", payload.Element{Key: "todo-1", Value: payload.Int(9)})
	require.NoError(t, e.RunTick(context.Background()))
	_, ok = e.DeltasSince(busHandle, 1)
	assert.False(t, ok)
}
