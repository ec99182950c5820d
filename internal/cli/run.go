package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BoonLang/boon-sub001/internal/engine"
	"github.com/BoonLang/boon-sub001/internal/graphspec"
	"github.com/BoonLang/boon-sub001/internal/payload"
	"github.com/BoonLang/boon-sub001/internal/store"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	DefinitionDir string
	Ticks         int64
	DBPath        string
	Program       string
	Resume        bool
}

// RunSummary is the machine-readable result of a bounded run.
type RunSummary struct {
	Program   string `json:"program"`
	StartTick int64  `json:"start_tick"`
	EndTick   int64  `json:"end_tick"`
	Effects   int    `json:"effects"`
	Saved     bool   `json:"saved"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <definition-dir>",
		Short: "Run a program for a fixed number of ticks",
		Long: `Load a program definition and execute it tick by tick.

Effects reaching output pads are printed as they occur. With --db the
final state is saved as a snapshot and the tick trace is appended, so
a later run with --resume continues from where this one stopped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DefinitionDir = args[0]
			return runRun(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Ticks, "ticks", 10, "number of ticks to execute")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database for snapshots and trace")
	cmd.Flags().StringVar(&opts.Program, "program", "", "program name used in the database (defaults to the definition's name)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "restore the latest snapshot before running")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	if opts.Ticks <= 0 {
		if ferr := formatter.Error("BAD_TICKS", "--ticks must be positive", nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, "bad tick count")
	}
	if opts.Resume && opts.DBPath == "" {
		if ferr := formatter.Error("RESUME_NEEDS_DB", "--resume requires --db", nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, "resume requires a database")
	}

	prog, err := graphspec.LoadDir(opts.DefinitionDir, graphspec.NewRegistry())
	if err != nil {
		if ferr := formatter.Error("LOAD_FAILED", err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "definition invalid")
	}

	name := opts.Program
	if name == "" {
		name = prog.Name
	}

	var st *store.Store
	if opts.DBPath != "" {
		st, err = store.Open(opts.DBPath)
		if err != nil {
			if ferr := formatter.Error("STORE_OPEN_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitCommandError, "cannot open database")
		}
		defer st.Close()
	}

	ctx := cmd.Context()
	e := engine.New(prog.Graph)

	var startTick int64
	if opts.Resume {
		snap, err := st.LatestSnapshot(ctx, name)
		switch {
		case errors.Is(err, store.ErrNoSnapshot):
			formatter.VerboseLog("no snapshot for %s, starting fresh", name)
		case err != nil:
			if ferr := formatter.Error("SNAPSHOT_LOAD_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "snapshot load failed")
		default:
			if err := e.Restore(snap); err != nil {
				if ferr := formatter.Error("SNAPSHOT_RESTORE_FAILED", err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, "snapshot restore failed")
			}
			startTick = snap.Tick
			formatter.VerboseLog("resumed %s at tick %d", name, snap.Tick)
		}
	}

	effects := 0
	for i := int64(0); i < opts.Ticks; i++ {
		if err := e.RunTick(ctx); err != nil {
			if ferr := formatter.Error("TICK_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "tick failed")
		}
		for _, eff := range e.PendingEffects() {
			effects++
			if rootOpts.Format != "json" {
				printEffect(cmd, e.Clock().Current(), eff)
			}
		}
	}

	summary := RunSummary{
		Program:   name,
		StartTick: startTick,
		EndTick:   e.Clock().Current(),
		Effects:   effects,
	}

	if st != nil {
		snap, err := e.Snapshot()
		if err != nil {
			if ferr := formatter.Error("SNAPSHOT_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "snapshot failed")
		}
		if err := st.SaveSnapshot(ctx, name, snap); err != nil {
			if ferr := formatter.Error("SNAPSHOT_SAVE_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "snapshot save failed")
		}
		if err := st.AppendTrace(ctx, name, e.Trace().Events()); err != nil {
			if ferr := formatter.Error("TRACE_SAVE_FAILED", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "trace save failed")
		}
		summary.Saved = true
	}

	if rootOpts.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ran %s from tick %d to %d, %d effects\n",
		summary.Program, summary.StartTick, summary.EndTick, summary.Effects)
	return nil
}

func printEffect(cmd *cobra.Command, tick int64, eff engine.Effect) {
	data, err := payload.MarshalCanonical(eff.Payload)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "[tick %d] %s: <unencodable: %v>\n", tick, eff.Pad, err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[tick %d] %s: %s\n", tick, eff.Pad, data)
}
