package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
	"github.com/BoonLang/boon-sub001/internal/testutil"
)

func TestRunLoopDrainsAndStops(t *testing.T) {
	g := testutil.BuildGraph(t, func(b *graph.Builder) {
		in := b.Pad("pulse")
		out := b.Pad("echo")
		b.Connect(in, out)
	})
	e := New(g)

	got := make(chan payload.Value, 8)
	e.BindEffect("echo", func(ef Effect) {
		got <- ef.Payload
	})

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background())
	}()

	require.True(t, e.InjectExternal("pulse", payload.Int(1)))
	select {
	case v := <-got:
		assert.Equal(t, payload.Int(1), v)
	case <-time.After(5 * time.Second):
		t.Fatal("effect never arrived")
	}

	e.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop never stopped")
	}

	// A stopped engine refuses further events.
	assert.False(t, e.InjectExternal("pulse", payload.Int(2)))
}

func TestRunLoopHonorsCancellation(t *testing.T) {
	g := testutil.BuildGraph(t, func(b *graph.Builder) {
		b.Pad("pulse")
	})
	e := New(g)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop ignored cancellation")
	}
}
