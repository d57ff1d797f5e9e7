package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/hgsim/internal/config"
	"github.com/roach88/hgsim/internal/engine"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/logging"
	"github.com/roach88/hgsim/internal/render"
	"github.com/roach88/hgsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Seed       int64
	Steps      int
	Database   string
	DOT        string // "-" writes to stdout
	Metrics    bool   // gather engine metrics into the summary

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the JSON payload of a finished run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	StepsRun   int             `json:"steps_run"`
	Nodes      int             `json:"nodes"`
	Edges      int             `json:"edges"`
	MaxDegree  int             `json:"max_degree"`
	RuleCounts map[string]int  `json:"rule_counts"`
	FinalHash  string          `json:"final_hash"`
	Database   string          `json:"database,omitempty"`
	DOT        string          `json:"dot,omitempty"`
	Steps      []ir.StepRecord `json:"steps"`

	Metrics []engine.MetricSample `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a seeded simulation",
		Long: `Run the hypergraph rewriting simulation.

The initial graph is one node carrying two self edges. Every step prints
a status line; the final state can be written as Graphviz DOT. Settings
come from defaults, then --config, then HGSIM_* environment variables,
then flags. With --db (or database in the config) the run, every step and
the final snapshot are recorded to SQLite for replay and trace.

Exit codes:
  0 - Run finished (completed, exhausted or interrupted)
  1 - Recording or verification failed
  2 - Command error (bad config, database cannot be opened)

Examples:
  hgsim run
  hgsim run --seed 7 --steps 100 --dot final.dot
  hgsim run --config sim.yaml --db ./runs.db --format json
  hgsim run --steps 100 --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML run configuration")
	cmd.Flags().Int64Var(&opts.Seed, "seed", engine.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&opts.Steps, "steps", engine.DefaultMaxSteps, "step budget")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (records the run)")
	cmd.Flags().StringVar(&opts.DOT, "dot", "", `write the final graph as DOT to this path ("-" for stdout)`)
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report the run's engine counters and gauges in the summary")

	return cmd
}

// loadRunConfig resolves defaults, file, environment and changed flags.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if flags.Changed("steps") {
		cfg.Steps = opts.Steps
	}
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if opts.Verbose && (cfg.Logging.Level == "" || cfg.Logging.Level == "info") {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	var records []ir.StepRecord
	engOpts := []engine.EngineOption{
		engine.WithSampleSize(cfg.SampleSize),
		engine.WithLogger(logger),
		engine.WithObserver(func(rec ir.StepRecord) {
			if formatter.JSON() {
				records = append(records, rec)
				return
			}
			fmt.Fprintln(w, render.StatusLine(rec))
		}),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	// A private registry keeps the summary to this run's series.
	var registry *prometheus.Registry
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		engOpts = append(engOpts, engine.WithMetrics(engine.NewMetrics(registry)))
	}

	if cfg.Database != "" {
		logger.Info("opening database", "path", cfg.Database)
		st, err := store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithRecorder(st))
	}

	eng, err := engine.NewFromParams(cfg.Params(), engOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, runErrorCode(err), "invalid configuration", err)
	}

	eng.Seed()
	if !formatter.JSON() {
		fmt.Fprintln(w, render.InitialLine(eng.Graph(), cfg.SampleSize))
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return formatter.Fail(ExitFailure, runErrorCode(err), "run failed", err)
	}

	if res.Status == ir.RunStatusExhausted && !formatter.JSON() {
		fmt.Fprintln(w, render.ExhaustedLine(res.StepsRun+1))
	}

	g := eng.Graph()
	summary := RunSummary{
		RunID:      res.RunID,
		Status:     res.Status,
		StepsRun:   res.StepsRun,
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
		MaxDegree:  g.MaxDegree(),
		RuleCounts: res.RuleCounts,
		FinalHash:  res.FinalHash,
		Database:   cfg.Database,
		Steps:      records,
	}
	if summary.Steps == nil {
		summary.Steps = []ir.StepRecord{}
	}
	if registry != nil {
		samples, err := engine.GatherSamples(registry)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeRun, "failed to gather metrics", err)
		}
		summary.Metrics = samples
	}

	if opts.DOT != "" {
		dot := render.RenderDOT(g, "Final Hypergraph")
		switch {
		case opts.DOT != "-":
			if err := os.WriteFile(opts.DOT, []byte(dot), 0644); err != nil {
				return formatter.Fail(ExitFailure, ErrCodeRun, "failed to write DOT file", err)
			}
			formatter.VerboseLog("wrote %s", opts.DOT)
		case formatter.JSON():
			summary.DOT = dot
		default:
			fmt.Fprint(w, dot)
		}
	}

	if formatter.JSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID})
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run %s: %s after %d step(s)\n", summary.RunID, summary.Status, summary.StepsRun)
	fmt.Fprintf(w, "  Final: %d node(s), %d edge(s), max degree %d\n", summary.Nodes, summary.Edges, summary.MaxDegree)
	fmt.Fprintf(w, "  Rules: %s\n", formatRuleCounts(summary.RuleCounts))
	fmt.Fprintf(w, "  State hash: %s\n", summary.FinalHash)
	if summary.Database != "" {
		fmt.Fprintf(w, "  Recorded to %s\n", summary.Database)
	}
	if len(summary.Metrics) > 0 {
		fmt.Fprintln(w, "  Metrics:")
		for _, m := range summary.Metrics {
			fmt.Fprintf(w, "    %s\n", m)
		}
	}
	return nil
}

// runErrorCode maps an engine error to its JSON error code.
func runErrorCode(err error) string {
	switch {
	case engine.IsRecordError(err):
		return ErrCodeStore
	case engine.IsInvalidConfig(err):
		return ErrCodeConfig
	case engine.IsInvariantViolation(err):
		return ErrCodeInvalid
	default:
		return ErrCodeRun
	}
}

// formatRuleCounts renders counts as "split=3, toggle_add=1" in key order.
func formatRuleCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
