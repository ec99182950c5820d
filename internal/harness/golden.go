package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/BoonLang/boon-sub001/internal/graphspec"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// snapshotValue flattens a result into a payload value so the golden
// bytes come from the same canonical encoder the engine itself uses for
// idempotency keys and snapshots. Any drift in the encoder shows up
// here as a golden diff.
func snapshotValue(scenarioName string, result *Result) payload.Value {
	ticks := make(payload.List, 0, len(result.Ticks))
	for _, rec := range result.Ticks {
		effects := make(payload.List, 0, len(rec.Effects))
		for _, ef := range rec.Effects {
			effects = append(effects, payload.Element{Key: ef.Pad, Value: ef.Payload})
		}
		ticks = append(ticks, payload.Element{
			Key:   strconv.FormatInt(rec.Tick, 10),
			Value: payload.Object{"effects": effects},
		})
	}
	return payload.Object{
		"scenario": payload.Text(scenarioName),
		"ticks":    ticks,
	}
}

// RunWithGolden executes a scenario and compares its observed effects
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, reg *graphspec.Registry) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, reg)
	if err != nil {
		return nil, err
	}

	data, err := payload.MarshalCanonical(snapshotValue(scenario.Name, result))
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
