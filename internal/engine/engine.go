package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/logging"
	"github.com/roach88/hgsim/internal/rules"
)

// Defaults for a run.
const (
	DefaultSeed             = 42
	DefaultMaxSteps         = 30
	DefaultPatternSize      = 1
	DefaultSampleSize       = 5
	DefaultInitialSelfLoops = 2
)

// ToggleRemoveTarget selects which edge a successful Toggle-Remove removes.
type ToggleRemoveTarget string

const (
	// TargetPattern removes the matched pattern edge, whatever node the rule
	// actually checked. This is the default.
	TargetPattern ToggleRemoveTarget = "pattern"

	// TargetSelfLoop removes the self edge of the node the rule checked.
	TargetSelfLoop ToggleRemoveTarget = "self_loop"
)

// Recorder persists a run as it happens. *store.Store implements it.
type Recorder interface {
	WriteRun(ctx context.Context, run ir.RunInfo) error
	RecordStep(ctx context.Context, rec ir.StepRecord) error
	FinishRun(ctx context.Context, runID, status string, stepsRun int) error
	WriteSnapshot(ctx context.Context, snap ir.Snapshot) error
}

// Engine is the single-writer step driver.
//
// INVARIANTS:
//   - the graph is mutated only by Seed and Step
//   - randomness is drawn only inside rules.Generate
//   - step numbers come from the Clock and strictly increase
type Engine struct {
	graph  *hypergraph.Store
	src    rules.Source
	seed   int64
	clock  *Clock
	runIDs RunIDGenerator

	maxSteps         int
	patternSize      int
	sampleSize       int
	initialSelfLoops int
	initialEdges     []hypergraph.Edge
	target           ToggleRemoveTarget

	logger   *slog.Logger
	recorder Recorder
	observer func(ir.StepRecord)
	metrics  *Metrics
	paranoid bool
	hash     func(hypergraph.View) (string, error)

	seeded bool
	runID  string
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxSteps sets the step budget N.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithPatternSize sets the maxSize passed to LocalConnected. Only the first
// discovered edge is used as the pattern whatever the size.
func WithPatternSize(n int) EngineOption {
	return func(e *Engine) {
		e.patternSize = n
	}
}

// WithSampleSize sets how many edges each step record samples.
func WithSampleSize(n int) EngineOption {
	return func(e *Engine) {
		e.sampleSize = n
	}
}

// WithInitialSelfLoops sets how many self edges Seed puts on the first node.
func WithInitialSelfLoops(n int) EngineOption {
	return func(e *Engine) {
		e.initialSelfLoops = n
	}
}

// WithInitialEdges replaces the default initial condition with edges.
func WithInitialEdges(edges []hypergraph.Edge) EngineOption {
	return func(e *Engine) {
		e.initialEdges = make([]hypergraph.Edge, len(edges))
		for i, edge := range edges {
			e.initialEdges[i] = edge.Clone()
		}
	}
}

// WithToggleRemoveTarget selects the edge a successful Toggle-Remove removes.
func WithToggleRemoveTarget(t ToggleRemoveTarget) EngineOption {
	return func(e *Engine) {
		e.target = t
	}
}

// WithSource replaces the seeded generator, typically with a scripted one.
func WithSource(src rules.Source) EngineOption {
	return func(e *Engine) {
		e.src = src
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRecorder records the run through r.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDGenerator sets the run id source. Defaults to UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithObserver calls fn with every step record, after it is recorded.
func WithObserver(fn func(ir.StepRecord)) EngineOption {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithMetrics sends the engine's counters and gauges to m instead of
// DefaultMetrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithParanoid verifies the store invariants after every step.
func WithParanoid(on bool) EngineOption {
	return func(e *Engine) {
		e.paranoid = on
	}
}

// New creates an Engine driving graph with randomness seeded by seed.
func New(graph *hypergraph.Store, seed int64, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:            graph,
		seed:             seed,
		clock:            NewClock(),
		runIDs:           UUIDv7Generator{},
		maxSteps:         DefaultMaxSteps,
		patternSize:      DefaultPatternSize,
		sampleSize:       DefaultSampleSize,
		initialSelfLoops: DefaultInitialSelfLoops,
		target:           TargetPattern,
		logger:           slog.Default(),
		metrics:          DefaultMetrics,
		hash:             StateHash,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.src == nil {
		e.src = rules.NewSource(seed)
	}
	return e
}

// NewFromParams validates p and creates an Engine over a fresh store.
func NewFromParams(p ir.RunParams, opts ...EngineOption) (*Engine, error) {
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	graph := hypergraph.New(hypergraph.WithRecencyWindow(p.RecencyWindow))
	base := []EngineOption{
		WithMaxSteps(p.Steps),
		WithPatternSize(p.PatternSize),
		WithInitialSelfLoops(p.InitialSelfLoops),
		WithToggleRemoveTarget(ToggleRemoveTarget(p.ToggleRemoveTarget)),
	}
	return New(graph, p.Seed, append(base, opts...)...), nil
}

// ValidateParams rejects parameters no run can use.
func ValidateParams(p ir.RunParams) error {
	switch {
	case p.Steps < 0:
		return NewConfigError("steps", p.Steps, "must be >= 0")
	case p.PatternSize < 1:
		return NewConfigError("pattern_size", p.PatternSize, "must be >= 1")
	case p.RecencyWindow < 0:
		return NewConfigError("recency_window", p.RecencyWindow, "must be >= 0")
	case p.InitialSelfLoops < 0:
		return NewConfigError("initial_self_loops", p.InitialSelfLoops, "must be >= 0")
	}
	switch ToggleRemoveTarget(p.ToggleRemoveTarget) {
	case TargetPattern, TargetSelfLoop:
	default:
		return NewConfigError("toggle_remove_target", p.ToggleRemoveTarget, `must be "pattern" or "self_loop"`)
	}
	return nil
}

// Params returns the parameters that determine this engine's runs.
func (e *Engine) Params() ir.RunParams {
	return ir.RunParams{
		Seed:               e.seed,
		Steps:              e.maxSteps,
		PatternSize:        e.patternSize,
		RecencyWindow:      e.graph.RecencyWindow(),
		InitialSelfLoops:   e.initialSelfLoops,
		ToggleRemoveTarget: string(e.target),
	}
}

// Graph returns the read-only view of the driven store.
func (e *Engine) Graph() hypergraph.View {
	return e.graph
}

// Seed applies the initial condition: one explicitly added node carrying
// the configured number of self edges, or the edges given by
// WithInitialEdges. Seed is idempotent; Run calls it if nobody did.
func (e *Engine) Seed() {
	if e.seeded {
		return
	}
	e.seeded = true

	if e.initialEdges != nil {
		for _, edge := range e.initialEdges {
			e.graph.AddHyperedge(edge)
		}
		return
	}

	node := e.graph.AddNode(0)
	for i := 0; i < e.initialSelfLoops; i++ {
		e.graph.AddHyperedge(hypergraph.Edge{node, node})
	}
}

// Step applies one iteration at step number step and returns its record.
// It reports false, without touching the graph, when no active node is left.
// The only error is a failure to hash the resulting state.
func (e *Engine) Step(step int) (ir.StepRecord, bool, error) {
	rec := ir.StepRecord{RunID: e.runID, Step: step}

	active := e.graph.ActiveNodes()
	if len(active) == 0 {
		return rec, false, nil
	}
	seed := active[0]
	rec.SeedNode = seed

	indices := LocalConnected(e.graph, seed, e.patternSize)
	rec.PatternIndices = indices
	if len(indices) == 0 {
		rec.Skipped = true
		return rec, true, e.fillState(&rec)
	}

	matched := indices[:1]
	edge, _ := e.graph.Edge(matched[0])
	rec.Pattern = [][]int{edge.Ints()}

	out := rules.Generate(e.graph, []hypergraph.Edge{edge}, e.src)
	rec.Rule = out.Kind.String()
	rec.Label = rules.Label(out)
	rec.Focus = out.Node

	e.logger.Debug("rule applied",
		"step", step,
		"seed", seed,
		"pattern", edge.Ints(),
		"rule", rec.Rule,
		"remove", out.Remove,
		"add", len(out.Add))

	if out.Remove {
		targets := e.removalTargets(matched, out)
		for _, i := range targets {
			if removed, ok := e.graph.Edge(i); ok {
				rec.Removed = append(rec.Removed, removed.Ints())
			}
		}
		e.graph.RemoveHyperedges(targets)
	}
	for _, add := range out.Add {
		e.graph.AddHyperedge(add)
		rec.Added = append(rec.Added, add.Ints())
	}

	stats := e.graph.Compact(step)
	rec.Pruned = stats.Pruned
	if stats.Pruned > 0 {
		e.metrics.NodesPruned.Add(float64(stats.Pruned))
		e.logger.Debug("nodes pruned", "step", step, "ids", stats.PrunedIDs, "dropped_edges", stats.DroppedEdges)
	}

	return rec, true, e.fillState(&rec)
}

// removalTargets picks the edges a removing outcome takes out. With
// TargetSelfLoop a Toggle-Remove removes the checked node's self edge;
// everything else removes the matched pattern.
func (e *Engine) removalTargets(matched []int, out rules.Outcome) []int {
	if e.target == TargetSelfLoop && out.Kind == rules.KindToggleRemove {
		if i := e.graph.SelfLoopIndex(out.Node); i >= 0 {
			return []int{i}
		}
	}
	return matched
}

func (e *Engine) fillState(rec *ir.StepRecord) error {
	g := e.graph
	rec.NodeCount = g.NodeCount()
	rec.EdgeCount = g.EdgeCount()
	rec.MaxDegree = g.MaxDegree()
	rec.MaxDegreeNode = g.MaxDegreeNode()
	rec.ActiveNodes = g.ActiveNodes()
	rec.Degrees = g.Degrees()

	sample := hypergraph.Sample(g, e.sampleSize)
	rec.Sample = make([][]int, len(sample))
	for i, edge := range sample {
		rec.Sample[i] = edge.Ints()
	}

	hash, err := e.hash(g)
	if err != nil {
		return fmt.Errorf("step %d: hash state: %w", rec.Step, err)
	}
	rec.StateHash = hash
	return nil
}

// StateHash hashes the full state of v: edges in storage order, the degree
// table and the max node id.
func StateHash(v hypergraph.View) (string, error) {
	edges := v.Edges()
	raw := make([][]int, len(edges))
	for i, edge := range edges {
		raw[i] = edge.Ints()
	}
	return ir.StateHash(raw, v.Degrees(), v.MaxNodeID())
}

// Result summarises a finished run.
type Result struct {
	RunID      string
	Status     string
	StepsRun   int
	RuleCounts map[string]int
	FinalHash  string
}

// Run seeds the graph if needed and steps until the budget is spent, no
// active node remains or ctx is cancelled. Cancellation is checked between
// steps only.
//
// Errors come only from the recorder, state hashing, paranoid verification
// or ctx; the partial Result is returned alongside them.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.Seed()
	e.runID = e.runIDs.Generate()

	res := &Result{
		RunID:      e.runID,
		Status:     ir.RunStatusRunning,
		RuleCounts: make(map[string]int),
	}

	params := e.Params()
	configHash, err := ir.ConfigHash(params.Map())
	if err != nil {
		return res, fmt.Errorf("hash run params: %w", err)
	}

	if e.recorder != nil {
		info := ir.RunInfo{
			ID:            e.runID,
			Params:        params,
			ConfigHash:    configHash,
			Status:        ir.RunStatusRunning,
			EngineVersion: ir.EngineVersion,
			IRVersion:     ir.IRVersion,
		}
		if err := e.recorder.WriteRun(ctx, info); err != nil {
			return res, NewRecordError(e.runID, 0, "run", err)
		}
	}

	e.logger.Info("run starting",
		"run_id", e.runID,
		"seed", params.Seed,
		"steps", params.Steps,
		"toggle_remove_target", params.ToggleRemoveTarget)

	budget := NewStepBudget(e.maxSteps)
	status := ir.RunStatusCompleted
	var runErr error

	for budget.Take() {
		if err := ctx.Err(); err != nil {
			e.logger.Info("run cancelled",
				"run_id", e.runID,
				"after_step", e.clock.Current(),
				"steps_not_run", budget.Remaining()+1)
			status = ir.RunStatusCancelled
			runErr = err
			break
		}

		step := int(e.clock.Next())
		rec, ok, err := e.Step(step)
		if err != nil {
			status = ir.RunStatusFailed
			runErr = err
			break
		}
		if !ok {
			e.logger.Info("no active nodes left", "run_id", e.runID, "step", step)
			status = ir.RunStatusExhausted
			break
		}
		res.StepsRun = step

		rule := rec.Rule
		if rec.Skipped {
			rule = "skipped"
		}
		res.RuleCounts[rule]++
		e.metrics.Steps.WithLabelValues(rule).Inc()
		e.metrics.Edges.Set(float64(rec.EdgeCount))
		e.metrics.Nodes.Set(float64(rec.NodeCount))

		e.logger.Info("step",
			"step", step,
			"rule", rule,
			"nodes", rec.NodeCount,
			"edges", rec.EdgeCount,
			"max_degree", rec.MaxDegree,
			"max_degree_node", rec.MaxDegreeNode,
			"active", rec.ActiveNodes)
		e.logger.Log(ctx, logging.LevelTrace, "step state",
			"step", step,
			"degrees", rec.Degrees,
			"sample", rec.Sample,
			"state_hash", rec.StateHash)

		if e.paranoid {
			if err := hypergraph.Verify(e.graph); err != nil {
				status = ir.RunStatusFailed
				runErr = &RuntimeError{
					Code:    ErrCodeInvariantViolated,
					Message: "store failed verification",
					RunID:   e.runID,
					Step:    step,
					Err:     err,
				}
				break
			}
		}

		if e.recorder != nil {
			if err := e.recorder.RecordStep(ctx, rec); err != nil {
				status = ir.RunStatusFailed
				runErr = NewRecordError(e.runID, step, "step", err)
				break
			}
		}
		if e.observer != nil {
			e.observer(rec)
		}
		res.FinalHash = rec.StateHash
	}

	if res.FinalHash == "" {
		hash, err := e.hash(e.graph)
		switch {
		case err == nil:
			res.FinalHash = hash
		case runErr == nil:
			status = ir.RunStatusFailed
			runErr = fmt.Errorf("hash final state: %w", err)
		}
	}
	res.Status = status
	e.metrics.Runs.WithLabelValues(status).Inc()

	if e.recorder != nil {
		if err := e.finishRecording(ctx, res); err != nil && runErr == nil {
			runErr = err
		}
	}

	e.logger.Info("run finished",
		"run_id", e.runID,
		"status", status,
		"steps_run", res.StepsRun,
		"nodes", e.graph.NodeCount(),
		"edges", e.graph.EdgeCount())

	return res, runErr
}

// finishRecording writes the final snapshot and run status. It uses a
// context detached from cancellation so a cancelled run is still closed.
func (e *Engine) finishRecording(ctx context.Context, res *Result) error {
	ctx = context.WithoutCancel(ctx)

	edges := e.graph.Edges()
	snap := ir.Snapshot{
		RunID:     e.runID,
		Step:      res.StepsRun,
		Edges:     make([][]int, len(edges)),
		Degrees:   e.graph.Degrees(),
		MaxNodeID: e.graph.MaxNodeID(),
	}
	for i, edge := range edges {
		snap.Edges[i] = edge.Ints()
	}

	if err := e.recorder.WriteSnapshot(ctx, snap); err != nil {
		return NewRecordError(e.runID, res.StepsRun, "snapshot", err)
	}
	if err := e.recorder.FinishRun(ctx, e.runID, res.Status, res.StepsRun); err != nil {
		return NewRecordError(e.runID, res.StepsRun, "run status", err)
	}
	return nil
}
