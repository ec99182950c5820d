package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/graphspec"
)

// ValidationResult holds validation results for a definition directory.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Program string   `json:"program,omitempty"`
	Nodes   int      `json:"nodes,omitempty"`
	Pads    []string `json:"pads,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition-dir>",
		Short: "Validate a program definition without running it",
		Long: `Load and validate a CUE program definition.

Checks syntax, node kinds, body names, connection targets and graph
topology (same-tick cycles are rejected) without starting an engine.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	prog, err := graphspec.LoadDir(dir, graphspec.NewRegistry())
	if err != nil {
		var loadErr *graphspec.LoadError
		if errors.As(err, &loadErr) {
			if ferr := formatter.Error(loadErr.Code, loadErr.Message, nil); ferr != nil {
				return ferr
			}
			if loadErr.Code == graphspec.ErrCodeNotFound {
				return NewExitError(ExitCommandError, "definition directory not found")
			}
		} else {
			if ferr := formatter.Error("VALIDATE_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
		}
		return NewExitError(ExitFailure, "definition invalid")
	}

	nodes := 0
	prog.Graph.Nodes.Range(func(_ arena.Handle, _ *graph.Node) bool {
		nodes++
		return true
	})

	result := ValidationResult{
		Valid:   true,
		Program: prog.Name,
		Nodes:   nodes,
		Pads:    prog.Graph.PadNames(),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d nodes, pads %v\n", result.Program, result.Nodes, result.Pads)
	return nil
}
