// Package graph defines the reactive node model and the construction API.
//
// A graph is an arena of uniform node records plus a routing table. Every
// node carries a kind tag that selects its processing rule in the engine
// and a fixed hardware-mapping tag for the synthesis backend. The Builder
// is the construction API consumed by the compiler: allocate a node of a
// kind, connect producer to consumer, declare an I/O pad. It is called
// once per lowered language construct and never mid-tick.
//
// Build validates topology. Any cycle in the static routing graph is a
// same-tick mutual dependency and is rejected as a fatal TopologyError -
// the sanctioned self-reference pattern (a combiner or register body
// reading its own previous value) is not a routing edge at all, it is a
// declared committed-value observation, which the validator tracks
// separately. Two registers observing each other's previous value are
// technically acyclic (time-shifted) but confusing; Build logs a warning
// for that pattern rather than rejecting it.
package graph
