// Package engine implements the Boon reactive tick loop.
//
// The engine is the single owner of a built graph. It ingests external
// events and due timers at the start of a tick, propagates dirty nodes to
// quiescence, then executes queued side effects exactly once - and only
// then returns control to the host driver.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// All arena mutation happens in the goroutine that calls RunTick. This
// ensures:
//   - Deterministic propagation order (dirty queue is FIFO)
//   - No locks anywhere on the hot path
//   - No observer ever sees a partially-updated graph; visible effects
//     commit atomically at tick boundaries
//
// Tick processing flow:
//  1. Advance the logical tick counter
//  2. Drain due timers and queued external events into pad messages
//  3. Pop dirty nodes, run kind-specific updates, fan out new messages
//     via the routing table until the dirty queue empties (quiescence)
//  4. Execute accumulated effects once, in queue order
//  5. Return to the host (UI frame callback, CLI reactor, test harness)
//
// No node is processed twice in one tick for the same message identity:
// messages carry content-addressed idempotency keys and the loop
// deduplicates on (node, key).
//
// CRITICAL PATTERNS:
//
// Self-reference is a time-shift, not a cycle. A combiner or register
// body reads the value committed before the tick, computes, and the
// engine swaps the new value in only after the body returns. The node
// never re-observes its own commit within the tick, so the per-tick
// dependency graph stays acyclic with no locking.
//
// Processing never blocks. A node either has a value or it is Absent;
// long-running I/O is modeled as a later tick re-entering through a pad.
//
// Stale handles are normal. Teardown bumps the slot generation; messages
// already in flight to a freed node resolve stale and are dropped with a
// debug log, never an error.
package engine
