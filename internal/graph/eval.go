package graph

import (
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// Mode selects how a body resolves references to other nodes.
type Mode int

const (
	// Snapshot resolves each referenced node to exactly one value,
	// computed once, as of the triggering message. Used inside
	// Transformer and WHEN bodies.
	Snapshot Mode = iota + 1
	// Streaming resolves each referenced node to a live subscription:
	// the evaluating node is re-triggered whenever the referenced node
	// commits. Used inside SwitchedWire and WHILE bodies, and at top
	// level by default.
	Streaming
)

func (m Mode) String() string {
	switch m {
	case Snapshot:
		return "snapshot"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// EvalContext is the explicit, immutable context a body evaluates under.
// The engine constructs one per firing and forwards it by convention at
// every call boundary; there is no global or goroutine-local state. Nested
// calls inherit the mode via Nested.
type EvalContext struct {
	mode Mode
	tick int64
	prev payload.Value
	in   payload.Value

	resolve   func(arena.Handle) (payload.Value, error)
	subscribe func(arena.Handle)
}

// EvalConfig carries the engine-supplied callbacks for an EvalContext.
type EvalConfig struct {
	Mode Mode
	Tick int64
	// Prev is the pre-tick committed value for combiner/register bodies;
	// Absent for stateless bodies.
	Prev payload.Value
	// In is the triggering payload.
	In payload.Value
	// Resolve reads another node's committed value as of this trigger.
	Resolve func(arena.Handle) (payload.Value, error)
	// Subscribe records a live subscription from the evaluating node to
	// the referenced node. Only invoked in streaming mode. May be nil.
	Subscribe func(arena.Handle)
}

// NewEvalContext builds a context from the engine's config.
func NewEvalContext(cfg EvalConfig) *EvalContext {
	prev := cfg.Prev
	if prev == nil {
		prev = payload.Absent{}
	}
	in := cfg.In
	if in == nil {
		in = payload.Absent{}
	}
	return &EvalContext{
		mode:      cfg.Mode,
		tick:      cfg.Tick,
		prev:      prev,
		in:        in,
		resolve:   cfg.Resolve,
		subscribe: cfg.Subscribe,
	}
}

// Mode returns the evaluation mode.
func (c *EvalContext) Mode() Mode { return c.mode }

// Tick returns the logical tick the trigger belongs to.
func (c *EvalContext) Tick() int64 { return c.tick }

// Prev returns the pre-tick committed value of the evaluating node. For a
// combiner or register body this is always the value frozen before the
// body runs - the body never observes its own in-flight commit.
func (c *EvalContext) Prev() payload.Value { return c.prev }

// In returns the triggering payload.
func (c *EvalContext) In() payload.Value { return c.in }

// Read resolves a referenced node. In snapshot mode this is a one-shot
// accessor: one value, computed once, as of the trigger. In streaming mode
// the read additionally registers a live subscription so the evaluating
// node re-fires when the referenced node commits.
func (c *EvalContext) Read(h arena.Handle) (payload.Value, error) {
	if c.resolve == nil {
		return nil, fmt.Errorf("eval context has no resolver")
	}
	v, err := c.resolve(h)
	if err != nil {
		return nil, err
	}
	if c.mode == Streaming && c.subscribe != nil {
		c.subscribe(h)
	}
	return v, nil
}

// Nested returns a child context for a nested call, inheriting everything
// but the mode. The receiver is not modified.
func (c *EvalContext) Nested(mode Mode) *EvalContext {
	child := *c
	child.mode = mode
	return &child
}

// Body is one evaluation step of a node: given the context, produce the
// node's next output. Returning payload.Skip suppresses emission;
// returning a payload.Flushed value short-circuits downstream transforms.
type Body func(ctx *EvalContext) (payload.Value, error)
