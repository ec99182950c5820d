package harness

import (
	"context"
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/engine"
	"github.com/BoonLang/boon-sub001/internal/graphspec"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// EffectRecord is one observed effect.
type EffectRecord struct {
	Pad     string
	Payload payload.Value
}

// TickRecord is everything observed during one tick.
type TickRecord struct {
	Tick    int64
	Effects []EffectRecord
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// matched.
	Pass bool

	// Errors contains validation failure messages. Empty if Pass.
	Errors []string

	// Ticks records the effects observed per executed tick.
	Ticks []TickRecord

	// Trace contains every node firing, in propagation order.
	Trace []engine.TraceEvent
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a freshly loaded program and returns
// the result. Each run builds its own graph and engine, so scenarios
// never share state.
func Run(scenario *Scenario, reg *graphspec.Registry) (*Result, error) {
	if reg == nil {
		reg = graphspec.NewRegistry()
	}

	var prog *graphspec.Program
	var err error
	if scenario.Source != "" {
		prog, err = graphspec.LoadSource(scenario.Source, reg)
	} else {
		prog, err = graphspec.LoadDir(scenario.Definition, reg)
	}
	if err != nil {
		return nil, fmt.Errorf("loading definition: %w", err)
	}

	e := engine.New(prog.Graph)
	result := &Result{Pass: true}
	ctx := context.Background()

	for i, step := range scenario.Ticks {
		tick := int64(i + 1)

		for j, inj := range step.Inject {
			p, err := toPayload(inj.Payload)
			if err != nil {
				return nil, fmt.Errorf("tick %d inject %d: %w", tick, j, err)
			}
			token := fmt.Sprintf("%s-t%d-%d", scenario.Name, tick, j)
			if inj.Delay > 0 {
				e.After(inj.Delay, inj.Pad, p)
				continue
			}
			e.InjectEvent(engine.ExternalEvent{Pad: inj.Pad, Payload: p, Token: token})
		}

		if err := e.RunTick(ctx); err != nil {
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}

		rec := TickRecord{Tick: tick}
		for _, ef := range e.PendingEffects() {
			rec.Effects = append(rec.Effects, EffectRecord{Pad: ef.Pad, Payload: ef.Payload})
		}
		result.Ticks = append(result.Ticks, rec)

		for _, exp := range step.ExpectEffects {
			want, err := toPayload(exp.Payload)
			if err != nil {
				return nil, fmt.Errorf("tick %d expect: %w", tick, err)
			}
			if !tickHasEffect(rec, exp.Pad, want) {
				result.AddError("tick %d: expected effect on pad %q with payload %v, observed %v",
					tick, exp.Pad, want, rec.Effects)
			}
		}
	}

	result.Trace = e.Trace().Events()
	evaluateAssertions(scenario, e, result)
	return result, nil
}

func tickHasEffect(rec TickRecord, pad string, want payload.Value) bool {
	for _, ef := range rec.Effects {
		if ef.Pad == pad && payload.Equal(ef.Payload, want) {
			return true
		}
	}
	return false
}
