package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hgsim/internal/engine"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Seed      int64  `json:"seed"`
	Recorded  int    `json:"recorded"`
	Replayed  int    `json:"replayed"`
	Identical bool   `json:"identical"`

	DivergedAt int    `json:"diverged_at,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Actual     string `json:"actual,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs         []ReplayRunResult `json:"runs"`
	TotalRuns    int               `json:"total_runs"`
	AllIdentical bool              `json:"all_identical"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded runs and verify determinism",
		Long: `Replay recorded runs to verify determinism.

Each run is re-simulated from its recorded seed and parameters, and the
state hash of every step is compared with the log. The first differing
step is reported.

Exit codes:
  0 - All runs replayed identically
  1 - Determinism verification failed (a run diverged)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  hgsim replay --db ./runs.db
  hgsim replay --db ./runs.db --run 01928c5e-...
  hgsim replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

// openExisting opens a run log that must already exist. store.Open would
// otherwise create an empty database at a mistyped path.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	// Get runs to process
	var runs []ir.RunInfo
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
		}
		runs = []ir.RunInfo{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:         make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:    len(runs),
		AllIdentical: true,
	}

	if len(runs) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	for _, run := range runs {
		formatter.VerboseLog("replaying run %s (seed %d, %d steps)", run.ID, run.Params.Seed, run.StepsRun)
		runResult, err := replayRun(ctx, st, run)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRun, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Identical {
			result.AllIdentical = false
		}
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRun re-simulates one run. A divergence is a result, not an error.
func replayRun(ctx context.Context, st *store.Store, run ir.RunInfo) (ReplayRunResult, error) {
	recorded, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	report, err := engine.VerifyReplay(ctx, run, recorded)
	if err != nil && !engine.IsReplayDivergence(err) {
		return ReplayRunResult{}, err
	}

	return ReplayRunResult{
		RunID:      run.ID,
		Status:     run.Status,
		Seed:       run.Params.Seed,
		Recorded:   report.Recorded,
		Replayed:   report.Replayed,
		Identical:  report.Identical(),
		DivergedAt: report.DivergedAt,
		Expected:   report.Expected,
		Actual:     report.Actual,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllIdentical {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDiverged,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.AllIdentical {
		// Divergence = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		mark := "✓"
		if !run.Identical {
			mark = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", mark, run.RunID)
		fmt.Fprintf(w, "  Steps: %d recorded, %d replayed (%s)\n", run.Recorded, run.Replayed, run.Status)
		if verbose {
			fmt.Fprintf(w, "  Seed: %d\n", run.Seed)
		}

		if !run.Identical {
			fmt.Fprintf(w, "  Diverged at step %d\n", run.DivergedAt)
			fmt.Fprintf(w, "    expected: %s\n", orMissing(run.Expected))
			fmt.Fprintf(w, "    actual:   %s\n", orMissing(run.Actual))
		}
		fmt.Fprintln(w)
	}

	if result.AllIdentical {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Divergence = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

func orMissing(hash string) string {
	if hash == "" {
		return "(missing)"
	}
	return hash
}
