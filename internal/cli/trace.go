package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// TraceOptions holds options for the trace command.
type TraceOptions struct {
	DBPath   string
	Program  string
	FromTick int64
	ToTick   int64
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the recorded tick trace for a program",
		Long: `Print trace events recorded by earlier runs.

Events are ordered by tick, then by the order nodes fired within the
tick. Use --from and --to to bound the window; --to 0 means unbounded.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program name (required)")
	cmd.Flags().Int64Var(&opts.FromTick, "from", 1, "first tick to include")
	cmd.Flags().Int64Var(&opts.ToTick, "to", 0, "last tick to include, 0 for unbounded")

	return cmd
}

func runTrace(rootOpts *RootOptions, opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	st, err := openSnapshotStore(&SnapshotOptions{DBPath: opts.DBPath, Program: opts.Program}, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.TraceRange(cmd.Context(), opts.Program, opts.FromTick, opts.ToTick)
	if err != nil {
		if ferr := formatter.Error("TRACE_READ_FAILED", err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "trace read failed")
	}

	if rootOpts.Format == "json" {
		return formatter.Success(events)
	}
	if len(events) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no trace events for %s\n", opts.Program)
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(cmd.OutOrStdout(), "tick %-4d %-20s %-13s v%-6d emitted=%d\n",
			ev.Tick, ev.Node, ev.Kind, ev.Version, ev.Emitted)
	}
	return nil
}
