// Package store provides SQLite-backed durable storage for engine
// snapshots and propagation traces.
//
// The store holds two tables:
//   - Snapshots: one quiescent-state capture per (program, tick)
//   - Trace Events: the node firing log, ordered by logical tick
//
// All ordering uses the logical tick counter, never timestamps, so a
// resumed engine continues the exact version sequence it left off at.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot state is the engine's canonical JSON encoding; the store
// treats it as an opaque blob and never interprets payload contents.
package store
