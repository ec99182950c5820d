// Package harness provides scenario-driven conformance testing for the
// reactive engine.
//
// A scenario names a CUE program definition, drives the engine tick by
// tick with injected pad events, and asserts on the observed effects,
// final node values and the firing trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_demo
//	description: "Pressing the button increments the counter"
//	definition: counter            # CUE directory, relative to the file
//	ticks:
//	  - inject:
//	      - pad: button
//	        payload: {tag: press}
//	    expect_effects:
//	      - pad: display
//	        payload: 1
//	assertions:
//	  - type: node_value
//	    node: counter
//	    value: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - node_value: Verifies a node's final committed value
//   - effect_count: Verifies how many effects a pad observed in total
//   - fired_order: Verifies nodes appear in the trace in the given order
//   - quiescent: Verifies no events or timers remain queued
//
// # Deterministic Testing
//
// Scenarios run on the logical clock with fixed correlation tokens, so
// the same scenario always produces the same trace and the trace can be
// compared against a golden file.
package harness
