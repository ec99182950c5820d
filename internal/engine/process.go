package engine

import (
	"fmt"
	"log/slog"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// process applies one incoming message to a node and returns its
// emissions. The node's kind selects the update rule; stateful kinds
// buffer their commit so every same-tick reader still observes the
// pre-tick value.
func (e *Engine) process(tick int64, h arena.Handle, n *graph.Node, msg payload.Message) ([]emission, error) {
	in := msg.Payload

	// Flush bypass: a flushed value short-circuits every transform and
	// travels unchanged until an unwrap boundary turns it back into an
	// ordinary value. Pads observe it in passing but do not unwrap.
	if f, ok := in.(payload.Flushed); ok {
		if !n.Unwrap {
			if n.Kind == graph.KindPad {
				n.Commit(f)
				e.queueEffect(n.PadName, f, n.Version)
			}
			return []emission{{value: f}}, nil
		}
		in = f.Inner
	}

	switch n.Kind {
	case graph.KindProducer:
		n.Fired = true
		return []emission{{value: n.Current()}}, nil

	case graph.KindWire:
		return e.processWire(n, msg, in)

	case graph.KindRouter:
		return e.processRouter(n, msg, in)

	case graph.KindBus:
		return e.processBus(n, in)

	case graph.KindCombiner, graph.KindRegister:
		return e.processTimeShifted(tick, n, in)

	case graph.KindTransformer:
		return e.processTransformer(tick, n, in)

	case graph.KindPatternMux:
		return e.processPatternMux(tick, h, n, in)

	case graph.KindSwitchedWire:
		return e.processSwitchedWire(n, msg.Source, in)

	case graph.KindPad:
		n.Commit(in)
		e.queueEffect(n.PadName, in, n.Version)
		return []emission{{value: in}}, nil

	default:
		return nil, fmt.Errorf("node %s: unhandled kind %s", n.Name, n.Kind)
	}
}

// processWire forwards verbatim. Deltas are materialized against the
// wire's mirrored contents so any later consumer can read a full value;
// a version gap forces a full resync from the producing node.
func (e *Engine) processWire(n *graph.Node, msg payload.Message, in payload.Value) ([]emission, error) {
	switch d := in.(type) {
	case payload.ListDelta:
		next, err := payload.ApplyList(n.Elements, n.Version, d)
		if payload.IsVersionGap(err) {
			return e.resyncFull(n, msg.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("wire %s: %w", n.Name, err)
		}
		n.Elements = next
		n.Value = next
		n.Version = d.Next
		return []emission{{value: d}}, nil

	case payload.ObjectDelta:
		cur, _ := n.Current().(payload.Object)
		next, err := payload.ApplyObject(cur, n.Version, d)
		if payload.IsVersionGap(err) {
			return e.resyncFull(n, msg.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("wire %s: %w", n.Name, err)
		}
		n.Value = next
		n.Version = d.Next
		return []emission{{value: d}}, nil

	default:
		n.Value = in
		if l, ok := in.(payload.List); ok {
			n.Elements = l
		}
		// Mirror the producer's version so the delta chain survives the
		// passthrough unchanged.
		n.Version = msg.Version
		return []emission{{value: in}}, nil
	}
}

// resyncFull replaces the node's mirror with the producer's full
// committed value. Recovery from a version gap is always wholesale.
func (e *Engine) resyncFull(n *graph.Node, source arena.Handle) ([]emission, error) {
	src, err := e.g.Resolve(source)
	if err != nil {
		return nil, fmt.Errorf("delta resync: %w", err)
	}
	full := src.Current()
	n.Value = full
	if l, ok := full.(payload.List); ok {
		n.Elements = l
	}
	n.Version = src.Version
	slog.Warn("delta version gap, full resync",
		"node", n.Name,
		"source", src.Name,
		"version", src.Version,
	)
	return []emission{{value: full}}, nil
}

// processRouter demultiplexes an object onto per-field routes. A field
// delta touches only the subscribers of that field; siblings stay quiet.
func (e *Engine) processRouter(n *graph.Node, msg payload.Message, in payload.Value) ([]emission, error) {
	switch v := in.(type) {
	case payload.Object:
		n.Commit(v)
		ems := make([]emission, 0, len(v))
		for _, k := range v.SortedKeys() {
			ems = append(ems, emission{value: v[k], key: k})
		}
		return ems, nil

	case payload.ObjectDelta:
		cur, _ := n.Current().(payload.Object)
		next, err := payload.ApplyObject(cur, n.Version, v)
		if payload.IsVersionGap(err) {
			return e.routerResync(n, msg.Source)
		}
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", n.Name, err)
		}
		n.Value = next
		n.Version = v.Next
		return []emission{{value: v.Value, key: v.Field}}, nil

	default:
		return nil, fmt.Errorf("router %s: expected object payload, got %T", n.Name, in)
	}
}

func (e *Engine) routerResync(n *graph.Node, source arena.Handle) ([]emission, error) {
	src, err := e.g.Resolve(source)
	if err != nil {
		return nil, fmt.Errorf("router resync: %w", err)
	}
	obj, ok := src.Current().(payload.Object)
	if !ok {
		return nil, fmt.Errorf("router %s: resync source %s holds %T, not an object", n.Name, src.Name, src.Current())
	}
	n.Value = obj
	n.Version = src.Version
	slog.Warn("router delta gap, full resync", "node", n.Name, "source", src.Name)
	ems := make([]emission, 0, len(obj))
	for _, k := range obj.SortedKeys() {
		ems = append(ems, emission{value: obj[k], key: k})
	}
	return ems, nil
}

// processBus updates the authoritative collection. Every change becomes
// a delta chained on the bus's own version, logged in the bounded
// replay window, and fanned out both wholesale (the delta on static
// routes) and per element (keyed routes for element subscribers).
func (e *Engine) processBus(n *graph.Node, in payload.Value) ([]emission, error) {
	switch v := in.(type) {
	case payload.ListDelta:
		// Rebase onto the bus's chain. Ops address elements by identity
		// key, so they commute with unrelated upstream changes.
		return e.busApply(n, payload.ListDelta{Base: n.Version, Next: n.Version + 1, Ops: v.Ops})

	case payload.Element:
		op := payload.ListOp{Op: payload.OpInsert, Key: v.Key, Index: len(n.Elements), Value: v.Value}
		if n.Elements.Find(v.Key) >= 0 {
			op = payload.ListOp{Op: payload.OpReplace, Key: v.Key, Value: v.Value}
		}
		return e.busApply(n, payload.ListDelta{Base: n.Version, Next: n.Version + 1, Ops: []payload.ListOp{op}})

	case payload.List:
		// Wholesale replacement breaks every consumer's delta chain on
		// purpose: the full value goes out and the log restarts.
		n.Elements = v.Clone()
		n.Value = n.Elements
		n.Version++
		n.DeltaLog = nil
		ems := []emission{{value: n.Elements}}
		for _, el := range n.Elements {
			ems = append(ems, emission{value: el.Value, key: el.Key})
		}
		return ems, nil

	default:
		return nil, fmt.Errorf("bus %s: expected list, element or delta payload, got %T", n.Name, in)
	}
}

func (e *Engine) busApply(n *graph.Node, d payload.ListDelta) ([]emission, error) {
	next, err := payload.ApplyList(n.Elements, n.Version, d)
	if err != nil {
		return nil, fmt.Errorf("bus %s: %w", n.Name, err)
	}
	n.Elements = next
	n.Value = next
	n.Version = d.Next
	n.DeltaLog = append(n.DeltaLog, d)
	if len(n.DeltaLog) > e.deltaHistory {
		n.DeltaLog = n.DeltaLog[len(n.DeltaLog)-e.deltaHistory:]
	}

	ems := []emission{{value: d}}
	for _, op := range d.Ops {
		if op.Op == payload.OpRemove {
			continue
		}
		ems = append(ems, emission{value: op.Value, key: op.Key})
	}
	return ems, nil
}

// DeltasSince returns the bus's logged deltas chaining from version
// have, or false when have is outside the retained window and the
// consumer must take the full value instead.
func (e *Engine) DeltasSince(bus arena.Handle, have int64) ([]payload.ListDelta, bool) {
	n, err := e.g.Resolve(bus)
	if err != nil || n.Kind != graph.KindBus {
		return nil, false
	}
	for i, d := range n.DeltaLog {
		if d.Base == have {
			out := make([]payload.ListDelta, len(n.DeltaLog)-i)
			copy(out, n.DeltaLog[i:])
			return out, true
		}
	}
	if have == n.Version {
		return nil, true
	}
	return nil, false
}

// processTimeShifted runs a combiner or register body. The body only
// ever sees the value committed before this tick; the new value is
// buffered and swapped in after propagation quiesces, so a value at
// tick T+1 is a function of the value at tick T and no same-tick
// feedback can form.
func (e *Engine) processTimeShifted(tick int64, n *graph.Node, in payload.Value) ([]emission, error) {
	if n.Body == nil {
		return nil, fmt.Errorf("node %s: %s has no body", n.Name, n.Kind)
	}
	ctx := graph.NewEvalContext(graph.EvalConfig{
		Mode:    graph.Snapshot,
		Tick:    tick,
		Prev:    n.Current(),
		In:      in,
		Resolve: e.resolveValue,
	})
	out, err := n.Body(ctx)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.Name, err)
	}
	if _, skip := out.(payload.Skip); skip {
		return nil, nil
	}
	n.Pending = out
	n.HasPending = true
	return []emission{{value: out}}, nil
}

// commitTimeShifted swaps in every buffered combiner/register value at
// the end of the tick.
func (e *Engine) commitTimeShifted() {
	e.g.Nodes.Range(func(h arena.Handle, n *graph.Node) bool {
		if n.CommitPending() {
			slog.Debug("time-shifted commit",
				"node", n.Name,
				"version", n.Version,
			)
		}
		return true
	})
}

func (e *Engine) processTransformer(tick int64, n *graph.Node, in payload.Value) ([]emission, error) {
	if n.Body == nil {
		return nil, fmt.Errorf("transformer %s has no body", n.Name)
	}
	ctx := graph.NewEvalContext(graph.EvalConfig{
		Mode:    graph.Snapshot,
		Tick:    tick,
		In:      in,
		Resolve: e.resolveValue,
	})
	out, err := n.Body(ctx)
	if err != nil {
		return nil, fmt.Errorf("transformer %s: %w", n.Name, err)
	}
	if _, skip := out.(payload.Skip); skip {
		return nil, nil
	}
	n.Commit(out)
	return []emission{{value: out}}, nil
}

// processPatternMux tries the ordered arms against the trigger. The
// first match evaluates; no match means the mux is gated and stays
// silent. A nil arm body forwards the trigger unchanged.
func (e *Engine) processPatternMux(tick int64, h arena.Handle, n *graph.Node, in payload.Value) ([]emission, error) {
	for _, arm := range n.Arms {
		if !arm.Pattern.Matches(in) {
			continue
		}
		out := in
		if arm.Body != nil {
			cfg := graph.EvalConfig{
				Mode:    n.Mode,
				Tick:    tick,
				In:      in,
				Resolve: e.resolveValue,
			}
			if n.Mode == graph.Streaming {
				cfg.Subscribe = e.subscribeFor(h)
			}
			var err error
			out, err = arm.Body(graph.NewEvalContext(cfg))
			if err != nil {
				return nil, fmt.Errorf("pattern mux %s: %w", n.Name, err)
			}
		}
		if _, skip := out.(payload.Skip); skip {
			return nil, nil
		}
		n.Commit(out)
		return []emission{{value: out}}, nil
	}
	return nil, nil
}

// processSwitchedWire forwards the currently selected branch. The first
// input is the condition; a boolean selects input 1 (true) or 2
// (false), an integer selects input 1+i. A condition change immediately
// re-emits the newly selected branch's committed value.
func (e *Engine) processSwitchedWire(n *graph.Node, source arena.Handle, in payload.Value) ([]emission, error) {
	if n.Inputs.Len() == 0 {
		return nil, fmt.Errorf("switched wire %s has no condition input", n.Name)
	}
	if source == n.Inputs.At(0) {
		n.Cond = in
		sel, ok := e.selectedBranch(n)
		if !ok {
			return nil, nil
		}
		bn, err := e.g.Resolve(sel)
		if err != nil {
			return nil, fmt.Errorf("switched wire %s: %w", n.Name, err)
		}
		out := bn.Current()
		if _, absent := out.(payload.Absent); absent {
			return nil, nil
		}
		if payload.Equal(n.Current(), out) {
			return nil, nil
		}
		n.Commit(out)
		return []emission{{value: out}}, nil
	}

	sel, ok := e.selectedBranch(n)
	if !ok || sel != source {
		// Unselected branch: gated, no output.
		return nil, nil
	}
	if payload.Equal(n.Current(), in) {
		return nil, nil
	}
	n.Commit(in)
	return []emission{{value: in}}, nil
}

func (e *Engine) selectedBranch(n *graph.Node) (arena.Handle, bool) {
	idx := -1
	switch c := n.Cond.(type) {
	case payload.Bool:
		if bool(c) {
			idx = 1
		} else {
			idx = 2
		}
	case payload.Int:
		idx = 1 + int(c)
	default:
		return arena.Handle{}, false
	}
	if idx < 1 || idx >= n.Inputs.Len() {
		return arena.Handle{}, false
	}
	return n.Inputs.At(idx), true
}
