package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BoonLang/boon-sub001/internal/engine"
	"github.com/BoonLang/boon-sub001/internal/store"
)

// SnapshotOptions holds shared options for the snapshot subcommands.
type SnapshotOptions struct {
	DBPath  string
	Program string
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and manage stored snapshots",
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required)")
	cmd.PersistentFlags().StringVar(&opts.Program, "program", "", "program name (required)")

	cmd.AddCommand(newSnapshotListCommand(rootOpts, opts))
	cmd.AddCommand(newSnapshotShowCommand(rootOpts, opts))
	cmd.AddCommand(newSnapshotPruneCommand(rootOpts, opts))

	return cmd
}

func openSnapshotStore(opts *SnapshotOptions, formatter *OutputFormatter) (*store.Store, error) {
	if opts.DBPath == "" || opts.Program == "" {
		if ferr := formatter.Error("MISSING_FLAGS", "--db and --program are required", nil); ferr != nil {
			return nil, ferr
		}
		return nil, NewExitError(ExitCommandError, "missing required flags")
	}
	st, err := store.Open(opts.DBPath)
	if err != nil {
		if ferr := formatter.Error("STORE_OPEN_FAILED", err.Error(), nil); ferr != nil {
			return nil, ferr
		}
		return nil, NewExitError(ExitCommandError, "cannot open database")
	}
	return st, nil
}

func newSnapshotListCommand(rootOpts *RootOptions, opts *SnapshotOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots for a program",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openSnapshotStore(opts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.ListSnapshots(cmd.Context(), opts.Program)
			if err != nil {
				if ferr := formatter.Error("LIST_FAILED", err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, "list failed")
			}

			if rootOpts.Format == "json" {
				return formatter.Success(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no snapshots for %s\n", opts.Program)
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "tick %d  %s\n", info.Tick, info.CreatedAt)
			}
			return nil
		},
	}
}

func newSnapshotShowCommand(rootOpts *RootOptions, opts *SnapshotOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <tick|latest>",
		Short:         "Print a stored snapshot as JSON",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			st, err := openSnapshotStore(opts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := loadSnapshotArg(cmd, st, opts.Program, args[0])
			if err != nil {
				code := "SHOW_FAILED"
				if errors.Is(err, store.ErrNoSnapshot) {
					code = "NO_SNAPSHOT"
				}
				if ferr := formatter.Error(code, err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, "snapshot not available")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func loadSnapshotArg(cmd *cobra.Command, st *store.Store, program, arg string) (*engine.Snapshot, error) {
	if arg == "latest" {
		return st.LatestSnapshot(cmd.Context(), program)
	}
	tick, perr := strconv.ParseInt(arg, 10, 64)
	if perr != nil {
		return nil, fmt.Errorf("expected a tick number or \"latest\", got %q", arg)
	}
	return st.SnapshotAt(cmd.Context(), program, tick)
}

func newSnapshotPruneCommand(rootOpts *RootOptions, opts *SnapshotOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:           "prune",
		Short:         "Delete all but the newest snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if keep < 1 {
				if ferr := formatter.Error("BAD_KEEP", "--keep must be at least 1", nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitCommandError, "bad keep count")
			}
			st, err := openSnapshotStore(opts, formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.PruneSnapshots(cmd.Context(), opts.Program, keep)
			if err != nil {
				if ferr := formatter.Error("PRUNE_FAILED", err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, "prune failed")
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int64{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d snapshots\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 3, "number of newest snapshots to keep")
	return cmd
}
