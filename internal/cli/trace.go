package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/queryir"
	"github.com/roach88/hgsim/internal/render"
	"github.com/roach88/hgsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Step     int    // optional - single step only
	Rule     string // optional - filter to a rule kind or "skipped"
	From     int    // optional - first step of a range
	To       int    // optional - last step of a range
	Limit    int
	List     bool
	DOT      string // "-" writes to stdout
}

// SnapshotSummary describes the stored final state of a run.
type SnapshotSummary struct {
	Step      int    `json:"step"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	MaxDegree int    `json:"max_degree"`
	MaxNodeID int    `json:"max_node_id"`
	StateHash string `json:"state_hash"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run        ir.RunInfo       `json:"run"`
	Steps      []ir.StepRecord  `json:"steps"`
	RuleCounts map[string]int   `json:"rule_counts"`
	Snapshot   *SnapshotSummary `json:"snapshot,omitempty"`
	DOT        string           `json:"dot,omitempty"`
}

// RunList is the payload of trace --list.
type RunList struct {
	Runs []ir.RunInfo `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded steps of a run",
		Long: `Show the recorded history of a run.

Prints the status line of every recorded step, the per-rule step counts
and a summary of the stored final snapshot. Without --run the most recent
run is shown. The final snapshot can be rendered as Graphviz DOT.

Examples:
  hgsim trace --db ./runs.db --list
  hgsim trace --db ./runs.db
  hgsim trace --db ./runs.db --run 01928c5e-... --rule split
  hgsim trace --db ./runs.db --from 10 --to 20 --limit 5
  hgsim trace --db ./runs.db --step 12 --format json
  hgsim trace --db ./runs.db --dot final.dot`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (default: latest run)")
	cmd.Flags().IntVar(&opts.Step, "step", 0, "show a single step")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "filter to a rule kind (split, toggle_add, toggle_remove, toggle_remove_fallback, skipped)")
	cmd.Flags().IntVar(&opts.From, "from", 0, "first step to show")
	cmd.Flags().IntVar(&opts.To, "to", 0, "last step to show")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many steps")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	cmd.Flags().StringVar(&opts.DOT, "dot", "", `render the final snapshot as DOT to this path ("-" for stdout)`)

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.List {
		return listRuns(ctx, st, formatter)
	}

	run, err := resolveRun(ctx, st, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		if opts.RunID == "" {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "no runs found in database", nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	result := TraceResult{Run: run}

	if opts.Step > 0 {
		rec, err := st.ReadStep(ctx, run.ID, opts.Step)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("step %d not recorded for run %s", opts.Step, run.ID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read step", err)
		}
		result.Steps = []ir.StepRecord{rec}
	} else {
		query, err := stepQuery(run.ID, opts)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalid, "invalid step filter", err)
		}
		steps, err := st.QuerySteps(ctx, query)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read steps", err)
		}
		result.Steps = steps
	}

	result.RuleCounts, err = st.RuleCounts(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to count rules", err)
	}

	var final *hypergraph.Store
	snap, err := st.ReadSnapshot(ctx, run.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		formatter.VerboseLog("run %s has no final snapshot", run.ID)
	case err != nil:
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to read snapshot", err)
	default:
		hash, err := ir.StateHash(snap.Edges, snap.Degrees, snap.MaxNodeID)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, "failed to hash snapshot", err)
		}
		final = restoreSnapshot(snap)
		result.Snapshot = &SnapshotSummary{
			Step:      snap.Step,
			Nodes:     final.NodeCount(),
			Edges:     final.EdgeCount(),
			MaxDegree: final.MaxDegree(),
			MaxNodeID: snap.MaxNodeID,
			StateHash: hash,
		}
	}

	var dotOut string
	if opts.DOT != "" {
		if final == nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s has no final snapshot to render", run.ID), nil)
		}
		dot := render.RenderDOT(final, fmt.Sprintf("Run %s (step %d)", run.ID, snap.Step))
		switch {
		case opts.DOT != "-":
			if err := os.WriteFile(opts.DOT, []byte(dot), 0644); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeRun, "failed to write DOT file", err)
			}
		case formatter.JSON():
			result.DOT = dot
		default:
			dotOut = dot
		}
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	outputTraceText(cmd, result)
	fmt.Fprint(cmd.OutOrStdout(), dotOut)
	return nil
}

// resolveRun reads runID, or the latest run when runID is empty.
func resolveRun(ctx context.Context, st *store.Store, runID string) (ir.RunInfo, error) {
	if runID == "" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, runID)
}

// stepQuery builds the step query for the filter flags. "skipped" as a
// rule selects steps whose seed node had no incident edge.
func stepQuery(runID string, opts *TraceOptions) (queryir.Select, error) {
	preds := []queryir.Predicate{
		queryir.Equals{Field: "run_id", Value: runID},
	}

	switch opts.Rule {
	case "":
	case "skipped":
		preds = append(preds, queryir.Equals{Field: "skipped", Value: true})
	default:
		preds = append(preds,
			queryir.Equals{Field: "skipped", Value: false},
			queryir.Equals{Field: "rule", Value: opts.Rule},
		)
	}

	if opts.From > 0 || opts.To > 0 {
		hi := opts.To
		if hi == 0 {
			hi = math.MaxInt32
		}
		preds = append(preds, queryir.Between{Field: "step", Lo: opts.From, Hi: hi})
	}

	if opts.Limit < 0 {
		return queryir.Select{}, fmt.Errorf("--limit must be non-negative, got %d", opts.Limit)
	}

	q := queryir.Select{
		From:   queryir.SourceSteps,
		Filter: queryir.And{Predicates: preds},
		Limit:  opts.Limit,
	}
	if err := queryir.Validate(q); err != nil {
		return queryir.Select{}, err
	}
	return q, nil
}

// restoreSnapshot rebuilds a queryable graph from a stored snapshot.
func restoreSnapshot(snap ir.Snapshot) *hypergraph.Store {
	edges := make([]hypergraph.Edge, len(snap.Edges))
	for i, e := range snap.Edges {
		edges[i] = hypergraph.Edge(e)
	}
	return hypergraph.Restore(edges, len(snap.Degrees), snap.MaxNodeID)
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: RunList{Runs: runs}})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-10s  %8s  %6s\n", "RUN", "STATUS", "SEED", "STEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-10s  %8d  %6d\n", run.ID, run.Status, run.Params.Seed, run.StepsRun)
	}
	return nil
}

// outputTraceText outputs the trace as status lines and summaries.
func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()
	run := result.Run

	fmt.Fprintf(w, "Run: %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(w, "Seed: %d, Steps: %d/%d, Pattern Size: %d, Recency Window: %d, Toggle Remove Target: %s\n",
		run.Params.Seed, run.StepsRun, run.Params.Steps, run.Params.PatternSize,
		run.Params.RecencyWindow, run.Params.ToggleRemoveTarget)
	fmt.Fprintln(w)

	if len(result.Steps) == 0 {
		fmt.Fprintln(w, "No matching steps recorded.")
	}
	for _, rec := range result.Steps {
		fmt.Fprintln(w, render.StatusLine(rec))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Rules: %s\n", formatRuleCounts(result.RuleCounts))
	if s := result.Snapshot; s != nil {
		fmt.Fprintf(w, "Final snapshot at step %d: %d node(s), %d edge(s), max degree %d, max node id %d\n",
			s.Step, s.Nodes, s.Edges, s.MaxDegree, s.MaxNodeID)
		fmt.Fprintf(w, "State hash: %s\n", s.StateHash)
	}
}
