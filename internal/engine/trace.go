package engine

import "sync"

// defaultTraceCap bounds the in-memory trace ring.
const defaultTraceCap = 4096

// TraceEvent is one node firing in the propagation trace.
type TraceEvent struct {
	Tick    int64  `json:"tick"`
	Node    string `json:"node"`
	Kind    string `json:"kind"`
	Version int64  `json:"version"`
	Emitted int    `json:"emitted"`
}

// Trace is a bounded in-memory record of node firings, oldest first.
// Recording happens on the engine goroutine; Events may be called from
// anywhere.
type Trace struct {
	mu     sync.Mutex
	events []TraceEvent
	cap    int
}

func newTrace() *Trace {
	return &Trace{cap: defaultTraceCap}
}

func (t *Trace) record(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	if len(t.events) > t.cap {
		t.events = t.events[len(t.events)-t.cap:]
	}
}

// Events returns a copy of the recorded firings, oldest first.
func (t *Trace) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// ForTick returns the firings recorded during one tick.
func (t *Trace) ForTick(tick int64) []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []TraceEvent
	for _, ev := range t.events {
		if ev.Tick == tick {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears the trace.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
