package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test: a program definition, the
// events driven into it tick by tick, and the expected observations.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definition is the CUE definition directory, relative to the
	// scenario file location. Mutually exclusive with Source.
	Definition string `yaml:"definition,omitempty"`

	// Source is an inline CUE definition for self-contained scenarios.
	Source string `yaml:"source,omitempty"`

	// Ticks drives the engine: each entry is one tick's injections and
	// expected effects. An entry with no injections is a silent tick.
	Ticks []TickStep `yaml:"ticks"`

	// Assertions validate the final state and trace after all ticks.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TickStep is one tick of scenario execution.
type TickStep struct {
	// Inject lists the external events entering this tick.
	Inject []Injection `yaml:"inject,omitempty"`

	// ExpectEffects lists effects that must be observed this tick.
	// Subset match: extra effects are allowed, missing ones fail.
	ExpectEffects []ExpectedEffect `yaml:"expect_effects,omitempty"`
}

// Injection is one external event. A non-zero Delay schedules the event
// on the logical timer wheel instead of the immediate queue.
type Injection struct {
	Pad     string `yaml:"pad"`
	Payload any    `yaml:"payload"`
	Delay   int64  `yaml:"delay,omitempty"`
}

// ExpectedEffect is an effect the scenario requires during a tick.
type ExpectedEffect struct {
	Pad     string `yaml:"pad"`
	Payload any    `yaml:"payload"`
}

// Assertion validates final state or the firing trace.
type Assertion struct {
	// Type selects the assertion:
	// - "node_value": Node's committed value equals Value
	// - "effect_count": Pad observed exactly Count effects overall
	// - "fired_order": Nodes appear in the trace in this relative order
	// - "quiescent": No queued events or pending timers remain
	Type string `yaml:"type"`

	// Node is the node name (used by node_value).
	Node string `yaml:"node,omitempty"`

	// Value is the expected payload (used by node_value).
	Value any `yaml:"value,omitempty"`

	// Pad is the pad name (used by effect_count).
	Pad string `yaml:"pad,omitempty"`

	// Count is the expected effect total (used by effect_count).
	Count int `yaml:"count,omitempty"`

	// Nodes is the expected firing order (used by fired_order).
	Nodes []string `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeValue   = "node_value"
	AssertEffectCount = "effect_count"
	AssertFiredOrder  = "fired_order"
	AssertQuiescent   = "quiescent"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently skipping an
// assertion. Definition paths resolve relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Definition != "" && !filepath.IsAbs(scenario.Definition) {
		scenario.Definition = filepath.Join(filepath.Dir(path), scenario.Definition)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Definition == "") == (s.Source == "") {
		return fmt.Errorf("exactly one of definition or source is required")
	}
	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}

	for i, step := range s.Ticks {
		for j, inj := range step.Inject {
			if inj.Pad == "" {
				return fmt.Errorf("tick %d inject %d: pad is required", i+1, j)
			}
			if inj.Delay < 0 {
				return fmt.Errorf("tick %d inject %d: delay must not be negative", i+1, j)
			}
		}
		for j, exp := range step.ExpectEffects {
			if exp.Pad == "" {
				return fmt.Errorf("tick %d expect_effects %d: pad is required", i+1, j)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertNodeValue:
			if a.Node == "" {
				return fmt.Errorf("assertion %d: node_value requires node", i)
			}
		case AssertEffectCount:
			if a.Pad == "" {
				return fmt.Errorf("assertion %d: effect_count requires pad", i)
			}
		case AssertFiredOrder:
			if len(a.Nodes) < 2 {
				return fmt.Errorf("assertion %d: fired_order requires at least two nodes", i)
			}
		case AssertQuiescent:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}

	return nil
}
