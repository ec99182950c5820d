package harness

import (
	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/engine"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// evaluateAssertions checks every scenario assertion against the
// engine's final state and the accumulated result.
func evaluateAssertions(scenario *Scenario, e *engine.Engine, result *Result) {
	for i, a := range scenario.Assertions {
		switch a.Type {
		case AssertNodeValue:
			assertNodeValue(i, a, e, result)
		case AssertEffectCount:
			assertEffectCount(i, a, result)
		case AssertFiredOrder:
			assertFiredOrder(i, a, result)
		case AssertQuiescent:
			if e.QueueLen() > 0 {
				result.AddError("assertion %d: engine not quiescent, %d events queued", i, e.QueueLen())
			}
			if e.PendingTimers() > 0 {
				result.AddError("assertion %d: engine not quiescent, %d timers pending", i, e.PendingTimers())
			}
		}
	}
}

func assertNodeValue(i int, a Assertion, e *engine.Engine, result *Result) {
	want, err := toPayload(a.Value)
	if err != nil {
		result.AddError("assertion %d: bad value: %v", i, err)
		return
	}

	var got payload.Value
	found := false
	e.Graph().Nodes.Range(func(_ arena.Handle, n *graph.Node) bool {
		if n.Name == a.Node {
			got = n.Current()
			found = true
			return false
		}
		return true
	})
	if !found {
		result.AddError("assertion %d: no node named %q", i, a.Node)
		return
	}
	if !payload.Equal(got, want) {
		result.AddError("assertion %d: node %q holds %v, expected %v", i, a.Node, got, want)
	}
}

func assertEffectCount(i int, a Assertion, result *Result) {
	count := 0
	for _, rec := range result.Ticks {
		for _, ef := range rec.Effects {
			if ef.Pad == a.Pad {
				count++
			}
		}
	}
	if count != a.Count {
		result.AddError("assertion %d: pad %q observed %d effects, expected %d", i, a.Pad, count, a.Count)
	}
}

// assertFiredOrder checks that the named nodes appear in the trace in
// the given relative order. Other firings may interleave.
func assertFiredOrder(i int, a Assertion, result *Result) {
	next := 0
	for _, ev := range result.Trace {
		if next < len(a.Nodes) && ev.Node == a.Nodes[next] {
			next++
		}
	}
	if next != len(a.Nodes) {
		result.AddError("assertion %d: node %q never fired in expected order", i, a.Nodes[next])
	}
}
