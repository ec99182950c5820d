package graphspec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/engine"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

const counterDefinition = `
program: {
	name: "counter-demo"
	nodes: [
		{name: "button", kind: "pad"},
		{name: "counter", kind: "register", seed: 0, body: "increment", observe: ["counter"]},
		{name: "display", kind: "pad"},
	]
	connections: [
		{from: "button", to: "counter"},
		{from: "counter", to: "display"},
	]
}
`

func TestLoadSourceCounter(t *testing.T) {
	prog, err := LoadSource(counterDefinition, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "counter-demo", prog.Name)
	require.Contains(t, prog.Handles, "counter")

	n, err := prog.Graph.Resolve(prog.Handles["counter"])
	require.NoError(t, err)
	assert.Equal(t, graph.KindRegister, n.Kind)
	assert.Equal(t, payload.Int(0), n.Current())
	assert.NotNil(t, n.Body)

	// The self-observation survived loading.
	obs := prog.Graph.Observations(prog.Handles["counter"])
	require.Len(t, obs, 1)
	assert.Equal(t, prog.Handles["counter"], obs[0])
}

func TestLoadedProgramRuns(t *testing.T) {
	prog, err := LoadSource(counterDefinition, NewRegistry())
	require.NoError(t, err)

	e := engine.New(prog.Graph)
	var got []payload.Value
	e.BindEffect("display", func(ef engine.Effect) {
		got = append(got, ef.Payload)
	})

	for i := 0; i < 3; i++ {
		e.InjectExternal("button", payload.Tag("press"))
		require.NoError(t, e.RunTick(context.Background()))
	}

	require.Len(t, got, 3)
	assert.Equal(t, payload.Int(3), got[2])
}

func TestLoadDeterministicHandles(t *testing.T) {
	a, err := LoadSource(counterDefinition, NewRegistry())
	require.NoError(t, err)
	b, err := LoadSource(counterDefinition, NewRegistry())
	require.NoError(t, err)

	// Declaration order fixes allocation order, so two loads of the
	// same definition agree on every handle.
	assert.Equal(t, a.Handles, b.Handles)
}

func TestLoadPatternMuxAndConnections(t *testing.T) {
	src := `
program: {
	name: "mux-demo"
	nodes: [
		{name: "events", kind: "pad"},
		{name: "classify", kind: "pattern_mux", mode: "snapshot", arms: [
			{tag: "up", body: "identity"},
			{literal: 0},
		]},
		{name: "state", kind: "router"},
		{name: "view", kind: "pad"},
	]
	connections: [
		{from: "events", to: "classify"},
		{from: "state", field: "name", to: "view"},
	]
}
`
	prog, err := LoadSource(src, NewRegistry())
	require.NoError(t, err)

	mux, err := prog.Graph.Resolve(prog.Handles["classify"])
	require.NoError(t, err)
	require.Len(t, mux.Arms, 2)
	assert.True(t, mux.Arms[0].Pattern.Matches(payload.Tag("up")))
	assert.True(t, mux.Arms[1].Pattern.Matches(payload.Int(0)))
	assert.Nil(t, mux.Arms[1].Body)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{
			name: "missing program block",
			src:  `other: 1`,
			code: ErrCodeBuildFailed,
		},
		{
			name: "unknown kind",
			src:  `program: {name: "x", nodes: [{name: "a", kind: "gizmo"}]}`,
			code: ErrCodeBadNode,
		},
		{
			name: "unknown body",
			src:  `program: {name: "x", nodes: [{name: "a", kind: "register", seed: 0, body: "nope"}]}`,
			code: ErrCodeBadNode,
		},
		{
			name: "duplicate node",
			src:  `program: {name: "x", nodes: [{name: "a", kind: "wire"}, {name: "a", kind: "wire"}]}`,
			code: ErrCodeBadNode,
		},
		{
			name: "connection to unknown node",
			src:  `program: {name: "x", nodes: [{name: "a", kind: "wire"}], connections: [{from: "a", to: "b"}]}`,
			code: ErrCodeBadConn,
		},
		{
			name: "cycle rejected at build",
			src: `program: {
				name: "x"
				nodes: [{name: "a", kind: "wire"}, {name: "b", kind: "wire"}]
				connections: [{from: "a", to: "b"}, {from: "b", to: "a"}]
			}`,
			code: ErrCodeBuildFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource(tt.src, NewRegistry())
			require.Error(t, err)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.code, le.Code)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.cue"), []byte(counterDefinition), 0o644))

	prog, err := LoadDir(dir, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "counter-demo", prog.Name)

	_, err = LoadDir(filepath.Join(dir, "missing"), NewRegistry())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)

	empty := t.TempDir()
	_, err = LoadDir(empty, NewRegistry())
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestRegistryCustomBody(t *testing.T) {
	reg := NewRegistry()
	reg.Register("always-seven", func(ctx *graph.EvalContext) (payload.Value, error) {
		return payload.Int(7), nil
	})

	body, err := reg.Lookup("always-seven")
	require.NoError(t, err)
	out, err := body(graph.NewEvalContext(graph.EvalConfig{Mode: graph.Snapshot}))
	require.NoError(t, err)
	assert.Equal(t, payload.Int(7), out)

	_, err = reg.Lookup("missing")
	assert.Error(t, err)
}
