package graphspec

import (
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// Registry resolves body names declared in CUE to Go update functions.
// The zero value is unusable; NewRegistry seeds the builtin table.
type Registry struct {
	bodies map[string]graph.Body
}

// NewRegistry returns a registry holding the builtin bodies.
func NewRegistry() *Registry {
	r := &Registry{bodies: make(map[string]graph.Body)}
	for name, body := range builtins {
		r.bodies[name] = body
	}
	return r
}

// Register adds or replaces a named body. Host programs use this to
// expose domain-specific update functions to their definitions.
func (r *Registry) Register(name string, body graph.Body) {
	r.bodies[name] = body
}

// Lookup resolves a body name.
func (r *Registry) Lookup(name string) (graph.Body, error) {
	body, ok := r.bodies[name]
	if !ok {
		return nil, fmt.Errorf("unknown body %q", name)
	}
	return body, nil
}

var builtins = map[string]graph.Body{
	// identity forwards the trigger unchanged.
	"identity": func(ctx *graph.EvalContext) (payload.Value, error) {
		return ctx.In(), nil
	},

	// increment and decrement treat the previous value as a counter.
	"increment": func(ctx *graph.EvalContext) (payload.Value, error) {
		prev, ok := ctx.Prev().(payload.Int)
		if !ok {
			return nil, fmt.Errorf("increment: previous value is %T, want int", ctx.Prev())
		}
		return prev + 1, nil
	},
	"decrement": func(ctx *graph.EvalContext) (payload.Value, error) {
		prev, ok := ctx.Prev().(payload.Int)
		if !ok {
			return nil, fmt.Errorf("decrement: previous value is %T, want int", ctx.Prev())
		}
		return prev - 1, nil
	},

	// sum accumulates integer triggers.
	"sum": func(ctx *graph.EvalContext) (payload.Value, error) {
		prev, ok := ctx.Prev().(payload.Int)
		if !ok {
			return nil, fmt.Errorf("sum: previous value is %T, want int", ctx.Prev())
		}
		in, ok := ctx.In().(payload.Int)
		if !ok {
			return nil, fmt.Errorf("sum: trigger is %T, want int", ctx.In())
		}
		return prev + in, nil
	},

	// toggle flips a held boolean on every trigger.
	"toggle": func(ctx *graph.EvalContext) (payload.Value, error) {
		prev, ok := ctx.Prev().(payload.Bool)
		if !ok {
			return nil, fmt.Errorf("toggle: previous value is %T, want bool", ctx.Prev())
		}
		return !prev, nil
	},

	// double maps an integer trigger to twice its value.
	"double": func(ctx *graph.EvalContext) (payload.Value, error) {
		in, ok := ctx.In().(payload.Int)
		if !ok {
			return nil, fmt.Errorf("double: trigger is %T, want int", ctx.In())
		}
		return in * 2, nil
	},

	// hold_latest keeps the most recent trigger as the committed value.
	"hold_latest": func(ctx *graph.EvalContext) (payload.Value, error) {
		return ctx.In(), nil
	},
}
