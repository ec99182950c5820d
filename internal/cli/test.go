package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BoonLang/boon-sub001/internal/harness"
)

// TestOptions holds options for the test command.
type TestOptions struct {
	ScenariosDir string
	Filter       string
}

// ScenarioResult holds the outcome of a single scenario run.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates results across all scenarios.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against their program definitions",
		Long: `Run every YAML scenario under a directory.

Each scenario names a program definition, a sequence of ticks with
injections and expected effects, and final assertions. Scenarios run
in isolated engines; a failure in one does not stop the rest.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ScenariosDir = args[0]
			return runTest(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")

	return cmd
}

func runTest(rootOpts *RootOptions, opts *TestOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	files, err := findScenarioFiles(opts.ScenariosDir, opts.Filter)
	if err != nil {
		if ferr := formatter.Error("SCENARIO_DISCOVERY_FAILED", err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, "scenario discovery failed")
	}
	if len(files) == 0 {
		if ferr := formatter.Error("NO_SCENARIOS", fmt.Sprintf("no scenario files found in %s", opts.ScenariosDir), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, "no scenarios found")
	}

	result := TestResult{Total: len(files)}
	for _, file := range files {
		sr := runScenarioFile(file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		formatter.VerboseLog("scenario %s: pass=%v", sr.Name, sr.Pass)
	}

	if rootOpts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printTestResult(cmd, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

func runScenarioFile(file string) ScenarioResult {
	sr := ScenarioResult{Name: scenarioName(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}
	sr.Name = scenario.Name

	res, err := harness.Run(scenario, nil)
	if err != nil {
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}

	sr.Pass = res.Pass
	sr.Errors = append(sr.Errors, res.Errors...)
	return sr
}

func findScenarioFiles(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenarios directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, merr := filepath.Match(filter, scenarioName(path))
			if merr != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, merr)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printTestResult(cmd *cobra.Command, result TestResult) {
	out := cmd.OutOrStdout()
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		fmt.Fprintf(out, "%s %s\n", mark, sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(out, "    %s\n", e)
		}
	}
	fmt.Fprintf(out, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
