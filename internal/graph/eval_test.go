package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

func TestEvalContext_SnapshotReadIsOneShot(t *testing.T) {
	target := arena.Handle{Index: 1, Gen: 1}
	reads := 0
	var subscribed []arena.Handle

	ctx := NewEvalContext(EvalConfig{
		Mode: Snapshot,
		Resolve: func(h arena.Handle) (payload.Value, error) {
			reads++
			return payload.Int(7), nil
		},
		Subscribe: func(h arena.Handle) { subscribed = append(subscribed, h) },
	})

	v, err := ctx.Read(target)
	require.NoError(t, err)
	assert.Equal(t, payload.Int(7), v)
	assert.Equal(t, 1, reads)
	assert.Empty(t, subscribed, "snapshot reads never subscribe")
}

func TestEvalContext_StreamingReadSubscribes(t *testing.T) {
	target := arena.Handle{Index: 2, Gen: 1}
	var subscribed []arena.Handle

	ctx := NewEvalContext(EvalConfig{
		Mode: Streaming,
		Resolve: func(h arena.Handle) (payload.Value, error) {
			return payload.Int(9), nil
		},
		Subscribe: func(h arena.Handle) { subscribed = append(subscribed, h) },
	})

	_, err := ctx.Read(target)
	require.NoError(t, err)
	assert.Equal(t, []arena.Handle{target}, subscribed)
}

func TestEvalContext_NestedInheritsAndOverrides(t *testing.T) {
	ctx := NewEvalContext(EvalConfig{
		Mode: Streaming,
		Tick: 42,
		In:   payload.Tag("pulse"),
	})

	child := ctx.Nested(Snapshot)
	assert.Equal(t, Snapshot, child.Mode())
	assert.Equal(t, int64(42), child.Tick(), "everything but the mode is inherited")
	assert.Equal(t, payload.Tag("pulse"), child.In())
	assert.Equal(t, Streaming, ctx.Mode(), "parent context is immutable")
}

func TestEvalContext_DefaultsAbsent(t *testing.T) {
	ctx := NewEvalContext(EvalConfig{Mode: Snapshot})
	assert.True(t, payload.IsAbsent(ctx.Prev()))
	assert.True(t, payload.IsAbsent(ctx.In()))
}

func TestPattern_Matching(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		in      payload.Value
		want    bool
	}{
		{"any matches int", Any(), payload.Int(3), true},
		{"any matches absent", Any(), payload.Absent{}, true},
		{"literal int match", Lit(payload.Int(3)), payload.Int(3), true},
		{"literal int mismatch", Lit(payload.Int(3)), payload.Int(4), false},
		{"literal cross-variant", Lit(payload.Int(3)), payload.Text("3"), false},
		{"tag match", ByTag("pressed"), payload.Tag("pressed"), true},
		{"tag mismatch", ByTag("pressed"), payload.Tag("released"), false},
		{"tagged object match", ByTag("pressed"), payload.Object{"tag": payload.Tag("pressed"), "x": payload.Int(1)}, true},
		{"tag vs text", ByTag("pressed"), payload.Text("pressed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.Matches(tt.in))
		})
	}
}

func TestKind_HardwareTags(t *testing.T) {
	// Every kind carries a fixed synthesis tag.
	want := map[Kind]HardwareTag{
		KindProducer:     HWTiedSignal,
		KindWire:         HWNamedWire,
		KindRouter:       HWDemultiplexer,
		KindBus:          HWAddressDecoder,
		KindCombiner:     HWMultiplexer,
		KindRegister:     HWFlipFlop,
		KindTransformer:  HWCombinational,
		KindPatternMux:   HWPatternDecoder,
		KindSwitchedWire: HWTriStateBuffer,
		KindPad:          HWIOPort,
	}
	for k, tag := range want {
		assert.Equal(t, tag, k.HardwareTag(), k.String())
	}
}

func TestKind_StringRoundTrip(t *testing.T) {
	for k := KindProducer; k <= KindPad; k++ {
		assert.Equal(t, k, KindFromString(k.String()), k.String())
	}
	assert.Equal(t, Kind(0), KindFromString("bogus"))
}
