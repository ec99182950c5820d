// Package arena provides generation-checked slot storage for reactive nodes.
//
// The arena is the single owner of all node memory. Nodes are addressed by
// Handle, a (index, generation) pair. Freeing a slot bumps its generation,
// so any handle issued before the free can never resolve again - resolving
// it yields StaleHandleError, never another node's data. This is the only
// use-after-free defense in the engine; there is no reference counting and
// no tracing collector.
//
// Freed indices are recycled LIFO to bound memory growth under churn
// (collection elements come and go constantly).
//
// The arena is not safe for concurrent use. It is exclusively owned by the
// engine's single-writer tick loop.
package arena
