package graph

import (
	"fmt"
	"log/slog"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// Builder is the construction API. The compiler calls it once per lowered
// construct; node bodies never call it mid-tick. Errors accumulate and
// surface from Build, so a lowering pass does not need to check every
// call site.
type Builder struct {
	g    *Graph
	errs []error
	done bool
}

// NewBuilder creates a builder for an empty graph.
func NewBuilder() *Builder {
	return &Builder{g: newGraph()}
}

// NodeOption configures optional node attributes.
type NodeOption func(*Node)

// WithUnwrap marks the node as a flush unwrap boundary: a flushed value
// arriving here becomes the ordinary binding value again.
func WithUnwrap() NodeOption {
	return func(n *Node) {
		n.Unwrap = true
	}
}

func (b *Builder) alloc(n Node, opts ...NodeOption) arena.Handle {
	for _, opt := range opts {
		opt(&n)
	}
	return b.g.Nodes.Alloc(n)
}

// Producer allocates a node that emits v once at engine bootstrap and
// never re-fires.
func (b *Builder) Producer(name string, v payload.Value) arena.Handle {
	return b.alloc(Node{Kind: KindProducer, Name: name, Value: v})
}

// Wire allocates a verbatim forwarder.
func (b *Builder) Wire(name string) arena.Handle {
	return b.alloc(Node{Kind: KindWire, Name: name})
}

// Router allocates a field demultiplexer. Per-field consumers attach via
// ConnectField.
func (b *Builder) Router(name string) arena.Handle {
	return b.alloc(Node{Kind: KindRouter, Name: name})
}

// Bus allocates a dynamic collection holder.
func (b *Builder) Bus(name string) arena.Handle {
	return b.alloc(Node{Kind: KindBus, Name: name, Elements: payload.List{}})
}

// Combiner allocates a LATEST node. The body reads the previous committed
// value through ctx.Prev; the read is time-shifted, never a routing edge.
func (b *Builder) Combiner(name string, seed payload.Value, body Body) arena.Handle {
	return b.alloc(Node{Kind: KindCombiner, Name: name, Value: seed, Body: body})
}

// Register allocates a HOLD node: the named-accumulator specialization of
// Combiner.
func (b *Builder) Register(name string, seed payload.Value, body Body) arena.Handle {
	return b.alloc(Node{Kind: KindRegister, Name: name, Value: seed, Body: body})
}

// Transformer allocates a stateless THEN node. Its body always evaluates
// in snapshot mode.
func (b *Builder) Transformer(name string, body Body, opts ...NodeOption) arena.Handle {
	return b.alloc(Node{Kind: KindTransformer, Name: name, Body: body, Mode: Snapshot}, opts...)
}

// PatternMux allocates a WHEN (snapshot) or WHILE (streaming) matcher
// with ordered arms.
func (b *Builder) PatternMux(name string, mode Mode, arms []Arm, opts ...NodeOption) arena.Handle {
	armsCopy := make([]Arm, len(arms))
	copy(armsCopy, arms)
	return b.alloc(Node{Kind: KindPatternMux, Name: name, Mode: mode, Arms: armsCopy}, opts...)
}

// SwitchedWire allocates a WHILE passthrough. Its first connected input
// is the condition; the remaining inputs are the branches the condition
// selects among.
func (b *Builder) SwitchedWire(name string) arena.Handle {
	return b.alloc(Node{Kind: KindSwitchedWire, Name: name, Mode: Streaming})
}

// Pad declares an externally-bound channel and returns its boundary node.
// Declaring the same name twice returns the existing handle.
func (b *Builder) Pad(name string) arena.Handle {
	if h, ok := b.g.pads[name]; ok {
		return h
	}
	h := b.alloc(Node{Kind: KindPad, Name: name, PadName: name})
	b.g.pads[name] = h
	b.g.padOrder = append(b.g.padOrder, name)
	return h
}

// Connect wires producer to consumer with a static route and records the
// input on the consumer. Wiring order is fan-out order.
func (b *Builder) Connect(producer, consumer arena.Handle) {
	cn, err := b.g.Nodes.Resolve(consumer)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("connect %s -> %s: %w", producer, consumer, err))
		return
	}
	if _, err := b.g.Nodes.Resolve(producer); err != nil {
		b.errs = append(b.errs, fmt.Errorf("connect %s -> %s: %w", producer, consumer, err))
		return
	}
	b.g.Routes.AddStatic(producer, consumer)
	if !cn.Inputs.Contains(producer) {
		cn.Inputs.Append(producer)
	}
}

// ConnectField routes one field of a router's input object to a consumer.
// The route keys on the field name, so adding or removing other fields
// never disturbs this subscription.
func (b *Builder) ConnectField(router arena.Handle, field string, consumer arena.Handle) {
	rn, err := b.g.Nodes.Resolve(router)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("connect field %q of %s: %w", field, router, err))
		return
	}
	if rn.Kind != KindRouter {
		b.errs = append(b.errs, fmt.Errorf("connect field %q: %s is a %s, not a router", field, router, rn.Kind))
		return
	}
	cn, err := b.g.Nodes.Resolve(consumer)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("connect field %q of %s: %w", field, router, err))
		return
	}
	b.g.Routes.AddDynamic(router, field, consumer)
	if !cn.Inputs.Contains(router) {
		cn.Inputs.Append(router)
	}
}

// ConnectElement routes one collection element of a bus to a consumer,
// keyed by the element's stable allocation identity.
func (b *Builder) ConnectElement(bus arena.Handle, elementKey string, consumer arena.Handle) {
	bn, err := b.g.Nodes.Resolve(bus)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("connect element %q of %s: %w", elementKey, bus, err))
		return
	}
	if bn.Kind != KindBus {
		b.errs = append(b.errs, fmt.Errorf("connect element %q: %s is a %s, not a bus", elementKey, bus, bn.Kind))
		return
	}
	b.g.Routes.AddDynamic(bus, elementKey, consumer)
}

// Observe declares that reader's body reads target's committed value via
// ctx.Read. This is the time-shift pattern: value at T+1 is a function of
// the value at T, so no routing edge exists and no same-tick cycle can
// form. Only combiner/register readers may observe themselves or other
// time-shifted nodes; the validator checks this in Build.
func (b *Builder) Observe(reader, target arena.Handle) {
	if _, err := b.g.Nodes.Resolve(reader); err != nil {
		b.errs = append(b.errs, fmt.Errorf("observe %s -> %s: %w", reader, target, err))
		return
	}
	if _, err := b.g.Nodes.Resolve(target); err != nil {
		b.errs = append(b.errs, fmt.Errorf("observe %s -> %s: %w", reader, target, err))
		return
	}
	b.g.observations[reader] = append(b.g.observations[reader], target)
}

// Build validates topology and returns the finished graph. A same-tick
// cycle in the static routes is fatal; mutual committed-value observation
// between registers is only warned about (the pattern is acyclic in time
// but hard to read).
func (b *Builder) Build() (*Graph, error) {
	if b.done {
		return nil, fmt.Errorf("builder already consumed")
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("graph construction: %w", b.errs[0])
	}

	if err := validateTopology(b.g); err != nil {
		return nil, err
	}

	for _, w := range mutualObservationWarnings(b.g) {
		slog.Warn("mutual time-shifted observation",
			"nodes", w.Path,
			"detail", w.Message,
		)
	}

	b.done = true
	return b.g, nil
}
