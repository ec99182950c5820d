package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// DefaultMaxSteps is the default dirty-node step budget per tick.
const DefaultMaxSteps = 100_000

// DefaultDeltaHistory is the default number of deltas a bus retains for
// consumer catch-up before forcing a full-value resync.
const DefaultDeltaHistory = 64

// Effect is a side-effecting action observed at a pad: rendering, an I/O
// write. Effects accumulate during propagation and execute exactly once,
// in queue order, after quiescence.
type Effect struct {
	Pad     string
	Payload payload.Value
	Version int64
}

// EffectFunc handles an effect for a bound pad.
type EffectFunc func(Effect)

// envelope is one pending delivery in the dirty queue.
type envelope struct {
	target arena.Handle
	msg    payload.Message
}

// Engine drives a built graph. All mutation happens in the goroutine
// calling RunTick/Run (single-writer); InjectExternal and After are safe
// from any goroutine.
type Engine struct {
	g      *graph.Graph
	clock  *Clock
	queue  *externalQueue
	timers *timerWheel
	trace  *Trace

	maxSteps     int
	deltaHistory int

	dirty    []envelope
	effects  []Effect
	handlers map[string]EffectFunc
	pending  []Effect

	bootstrapped bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the per-tick step budget.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithDeltaHistory sets the bus delta retention window.
func WithDeltaHistory(n int) Option {
	return func(e *Engine) {
		e.deltaHistory = n
	}
}

// WithClock installs a pre-positioned clock. Used by snapshot restore to
// resume from the recorded tick.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine owning g. The graph must not be mutated by
// anyone else afterwards.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		g:            g,
		clock:        NewClock(),
		queue:        newExternalQueue(),
		timers:       newTimerWheel(),
		trace:        newTrace(),
		maxSteps:     DefaultMaxSteps,
		deltaHistory: DefaultDeltaHistory,
		handlers:     make(map[string]EffectFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the engine's graph for inspection. Callers must not
// mutate it.
func (e *Engine) Graph() *graph.Graph {
	return e.g
}

// Clock returns the logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Trace returns the propagation trace.
func (e *Engine) Trace() *Trace {
	return e.trace
}

// InjectExternal queues an external event for a declared pad. Safe from
// any goroutine. A fresh correlation token is generated when none is
// given. Returns false if the engine is stopped.
func (e *Engine) InjectExternal(pad string, p payload.Value) bool {
	return e.queue.Enqueue(ExternalEvent{
		Pad:     pad,
		Payload: p,
		Token:   uuid.Must(uuid.NewV7()).String(),
	})
}

// InjectEvent queues a fully-specified external event. Test harnesses
// use this to pin correlation tokens for golden traces.
func (e *Engine) InjectEvent(ev ExternalEvent) bool {
	return e.queue.Enqueue(ev)
}

// After schedules a payload to arrive at pad delay ticks from now.
// Models long-running I/O: the response enters as a later tick's event.
func (e *Engine) After(delay int64, pad string, p payload.Value) {
	e.timers.schedule(e.clock.Current()+delay, pad, p, uuid.Must(uuid.NewV7()).String())
}

// BindEffect registers a handler for effects observed at a pad. Unbound
// pads accumulate effects retrievable via PendingEffects.
func (e *Engine) BindEffect(pad string, fn EffectFunc) {
	e.handlers[pad] = fn
}

// PendingEffects drains and returns effects for pads without a bound
// handler, in the order they were queued.
func (e *Engine) PendingEffects() []Effect {
	out := e.pending
	e.pending = nil
	return out
}

// QueueLen returns the number of undrained external events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// PendingTimers returns the number of scheduled timers.
func (e *Engine) PendingTimers() int {
	return e.timers.pending()
}

// Stop closes the external queue; Run returns once drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// RunTick executes exactly one tick: advance the clock, ingest due
// timers and queued external events, propagate to quiescence, execute
// effects once. Must be called from one goroutine only.
//
// Event processing failures inside the tick are logged with full context
// and skipped; retries would make replay non-deterministic. Only
// invariant violations (step limit) surface as errors.
func (e *Engine) RunTick(ctx context.Context) error {
	tick := e.clock.Advance()

	if !e.bootstrapped {
		e.bootstrapProducers(tick)
		e.bootstrapped = true
	}

	events := e.timers.drainDue(tick)
	events = append(events, e.queue.DrainAll()...)
	for _, ev := range events {
		if err := e.ingest(tick, ev); err != nil {
			slog.Error("external event dropped",
				"error", err,
				"pad", ev.Pad,
				"token", ev.Token,
				"tick", tick,
			)
		}
	}

	if err := e.propagate(ctx, tick); err != nil {
		return err
	}

	e.commitTimeShifted()
	e.runEffects()
	return nil
}

// Run blocks processing ticks as events arrive, until ctx is cancelled
// or Stop is called. Each wakeup runs one tick; timers due on silent
// ticks are driven by the host calling RunTick (or by further events).
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "pads", e.g.PadNames())

	for {
		if e.queue.Len() > 0 {
			if err := e.RunTick(ctx); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// bootstrapProducers fires every producer exactly once. Producers emit
// their fixed value at construction time and never again; the emission
// is delivered on the engine's first tick. Restored producers are marked
// fired in the snapshot and stay silent.
func (e *Engine) bootstrapProducers(tick int64) {
	e.g.Nodes.Range(func(h arena.Handle, n *graph.Node) bool {
		if n.Kind != graph.KindProducer || n.Fired {
			return true
		}
		msg, err := payload.NewMessage(h, n.Current(), n.Version)
		if err != nil {
			slog.Error("producer bootstrap failed", "node", n.Name, "error", err)
			return true
		}
		e.push(envelope{target: h, msg: msg})
		return true
	})
}

// ingest converts one external event into a pad delivery.
func (e *Engine) ingest(tick int64, ev ExternalEvent) error {
	h, ok := e.g.Pad(ev.Pad)
	if !ok {
		return &UnknownPadError{Pad: ev.Pad}
	}
	p := ev.Payload
	if p == nil {
		p = payload.Absent{}
	}
	// External messages are versioned by tick: two injections of the
	// same payload on different ticks are distinct updates.
	msg, err := payload.NewMessage(arena.Handle{}, p, tick)
	if err != nil {
		return err
	}
	slog.Debug("external event ingested",
		"pad", ev.Pad,
		"token", ev.Token,
		"tick", tick,
	)
	e.push(envelope{target: h, msg: msg})
	return nil
}

func (e *Engine) push(env envelope) {
	e.dirty = append(e.dirty, env)
}

// propagate pops dirty nodes until quiescence. FIFO order respects
// topological dependency order because a node is only marked dirty after
// its producers for the current message have committed.
func (e *Engine) propagate(ctx context.Context, tick int64) error {
	processed := make(map[string]bool)
	steps := 0

	for len(e.dirty) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		steps++
		if steps > e.maxSteps {
			e.dirty = nil
			return &StepLimitError{Tick: tick, Steps: steps, Limit: e.maxSteps}
		}

		env := e.dirty[0]
		e.dirty[0] = envelope{}
		e.dirty = e.dirty[1:]

		n, err := e.g.Resolve(env.target)
		if err != nil {
			if arena.IsStale(err) {
				// Teardown race: the message was in flight when the node
				// was freed. Normal transition, silently dropped.
				slog.Debug("in-flight message to freed node dropped",
					"target", env.target,
					"tick", tick,
				)
				continue
			}
			return err
		}

		// Idempotency: same (node, message identity) processes once per
		// tick; a duplicate delivery must not double-apply.
		dedup := env.target.String() + ":" + env.msg.Key
		if processed[dedup] {
			continue
		}
		processed[dedup] = true
		n.Dirty = false

		emissions, err := e.process(tick, env.target, n, env.msg)
		if err != nil {
			slog.Error("node update failed",
				"error", err,
				"node", n.Name,
				"kind", n.Kind.String(),
				"handle", env.target,
				"tick", tick,
			)
			continue
		}

		e.trace.record(TraceEvent{
			Tick:    tick,
			Node:    n.Name,
			Kind:    n.Kind.String(),
			Version: n.Version,
			Emitted: len(emissions),
		})

		for _, em := range emissions {
			e.fanOut(tick, env.target, n, em)
		}
	}
	return nil
}

// emission is one outgoing value from a processed node. An empty key
// fans out over static routes; a non-empty key targets the dynamic
// routes registered under that element/field identity.
type emission struct {
	value payload.Value
	key   string
}

func (e *Engine) fanOut(tick int64, src arena.Handle, n *graph.Node, em emission) {
	if _, skip := em.value.(payload.Skip); skip {
		return
	}

	msg, err := payload.NewMessage(src, em.value, n.Version)
	if err != nil {
		slog.Error("message construction failed", "node", n.Name, "error", err)
		return
	}

	var targets []arena.Handle
	if em.key == "" {
		targets = e.g.Routes.FanOutStatic(src)
	} else {
		targets = e.g.Routes.FanOutKey(src, em.key)
	}

	for _, t := range targets {
		if t == src {
			continue
		}
		if tn, err := e.g.Resolve(t); err == nil {
			tn.Dirty = true
		}
		e.push(envelope{target: t, msg: msg})
	}
}

func (e *Engine) runEffects() {
	effects := e.effects
	e.effects = nil
	for _, ef := range effects {
		if fn, ok := e.handlers[ef.Pad]; ok {
			fn(ef)
			continue
		}
		e.pending = append(e.pending, ef)
	}
}

// queueEffect records a side effect for execution at quiescence.
func (e *Engine) queueEffect(pad string, p payload.Value, version int64) {
	e.effects = append(e.effects, Effect{Pad: pad, Payload: p, Version: version})
}

// resolveValue is the snapshot-mode accessor handed to body contexts:
// one committed value, as of now.
func (e *Engine) resolveValue(h arena.Handle) (payload.Value, error) {
	n, err := e.g.Resolve(h)
	if err != nil {
		return nil, err
	}
	return n.Current(), nil
}

// subscribeFor returns the streaming-mode subscription callback for the
// node at reader: referenced nodes gain a live route back to it.
func (e *Engine) subscribeFor(reader arena.Handle) func(arena.Handle) {
	return func(target arena.Handle) {
		if target == reader {
			slog.Warn("streaming self-subscription ignored", "node", reader)
			return
		}
		e.g.Routes.AddStatic(target, reader)
	}
}
