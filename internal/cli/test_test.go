package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: counter_pass
description: "Button presses increment the counter"
definition: ../def
ticks:
  - inject:
      - pad: button
        payload: {tag: press}
    expect_effects:
      - pad: display
        payload: 1
assertions:
  - type: node_value
    node: counter
    value: 1
  - type: quiescent
`

const failingScenario = `name: counter_fail
description: "Deliberately wrong expectation"
definition: ../def
ticks:
  - inject:
      - pad: button
        payload: {tag: press}
    expect_effects:
      - pad: display
        payload: 99
`

// writeScenarioTree lays out a definition directory and a scenarios
// directory holding the given files.
func writeScenarioTree(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	root := t.TempDir()

	defDir := filepath.Join(root, "def")
	require.NoError(t, os.MkdirAll(defDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defDir, "program.cue"), []byte(counterDefinition), 0o644))

	scenDir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenDir, 0o755))
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(scenDir, name), []byte(content), 0o644))
	}
	return scenDir
}

func TestTestCommandAllPass(t *testing.T) {
	scenDir := writeScenarioTree(t, map[string]string{"pass.yaml": passingScenario})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ counter_pass")
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
}

func TestTestCommandReportsFailure(t *testing.T) {
	scenDir := writeScenarioTree(t, map[string]string{
		"pass.yaml": passingScenario,
		"fail.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ counter_fail")
	assert.Contains(t, buf.String(), "1 passed, 1 failed, 2 total")
}

func TestTestCommandJSON(t *testing.T) {
	scenDir := writeScenarioTree(t, map[string]string{"pass.yaml": passingScenario})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["passed"])
	assert.Equal(t, float64(1), data["total"])
}

func TestTestCommandFilter(t *testing.T) {
	scenDir := writeScenarioTree(t, map[string]string{
		"pass.yaml": passingScenario,
		"fail.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenDir, "--filter", "pass*"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "NO_SCENARIOS")
}
