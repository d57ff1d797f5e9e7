package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/hgsim/internal/engine"
	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/logging"
	"github.com/roach88/hgsim/internal/store"
	"github.com/roach88/hgsim/internal/testutil"
)

// Harness is the scenario execution environment: one in-memory run log,
// one engine, one fixed run id.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	scripted *testutil.ScriptedSource
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the engine from the scenario parameters
// 3. Run it to completion in paranoid mode, recording every step
// 4. Read the trace back from the run log
// 5. Evaluate assertions
//
// The returned error covers setup and recording failures only; a scenario
// whose assertions fail returns a Result with Pass false.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: logging.Discard(),
	}

	opts := []engine.EngineOption{
		engine.WithLogger(h.logger),
		engine.WithRecorder(st),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithParanoid(true),
	}
	if scenario.Draws != nil {
		h.scripted = testutil.NewScriptedSource(scenario.Draws.Floats, scenario.Draws.Ints)
		opts = append(opts, engine.WithSource(h.scripted))
	}
	if scenario.InitialEdges != nil {
		edges := make([]hypergraph.Edge, len(scenario.InitialEdges))
		for i, e := range scenario.InitialEdges {
			edges[i] = hypergraph.Edge(e)
		}
		opts = append(opts, engine.WithInitialEdges(edges))
	}

	h.engine, err = engine.NewFromParams(scenario.Params(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.execute(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Graph: h.engine.Graph(),
		RunID: result.RunID,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute runs the engine and fills result from the run log. Invariant
// violations fail the scenario; anything else the engine reports is an
// execution error.
func (h *Harness) execute(ctx context.Context, result *Result) error {
	run, err := h.runEngine(ctx)
	if err != nil && !engine.IsInvariantViolation(err) {
		return fmt.Errorf("failed to run scenario: %w", err)
	}
	if err != nil {
		result.AddError(err.Error())
	}

	result.RunID = run.RunID
	result.Status = run.Status
	result.StepsRun = run.StepsRun

	result.Trace, err = h.store.ReadSteps(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	result.RuleCounts, err = h.store.RuleCounts(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to read rule counts: %w", err)
	}

	g := h.engine.Graph()
	result.Final = FinalState{
		Nodes:         g.NodeCount(),
		Edges:         g.EdgeCount(),
		MaxDegree:     g.MaxDegree(),
		MaxDegreeNode: g.MaxDegreeNode(),
		Degrees:       g.Degrees(),
	}

	if h.scripted != nil && !h.scripted.Exhausted() {
		floats, ints := h.scripted.Consumed()
		result.AddError(fmt.Sprintf("scripted draws not fully consumed: used %d floats and %d ints", floats, ints))
	}

	h.logger.Info("scenario executed",
		"run_id", run.RunID,
		"status", run.Status,
		"steps_run", run.StepsRun)
	return nil
}

// runEngine turns a scripted source running dry into an error.
func (h *Harness) runEngine(ctx context.Context) (res *engine.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("scenario needs more scripted draws: %v", r)
		}
	}()
	return h.engine.Run(ctx)
}
