package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/rules"
	"github.com/roach88/hgsim/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(opts ...EngineOption) *Engine {
	base := []EngineOption{
		WithLogger(quietLogger()),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-test")),
	}
	return New(hypergraph.New(), DefaultSeed, append(base, opts...)...)
}

// fakeRecorder captures everything an engine records.
type fakeRecorder struct {
	runs      []ir.RunInfo
	steps     []ir.StepRecord
	snapshots []ir.Snapshot
	finished  []string
	stepErr   error
}

func (f *fakeRecorder) WriteRun(_ context.Context, run ir.RunInfo) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRecorder) RecordStep(_ context.Context, rec ir.StepRecord) error {
	if f.stepErr != nil {
		return f.stepErr
	}
	f.steps = append(f.steps, rec)
	return nil
}

func (f *fakeRecorder) FinishRun(_ context.Context, _ string, status string, _ int) error {
	f.finished = append(f.finished, status)
	return nil
}

func (f *fakeRecorder) WriteSnapshot(_ context.Context, snap ir.Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func TestEngine_SeedInitialCondition(t *testing.T) {
	e := newTestEngine()
	e.Seed()

	g := e.Graph()
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 4, g.MaxDegree(), "each self edge occupies two slots")
	assert.Equal(t, []hypergraph.Edge{{0, 0}, {0, 0}}, g.Edges())
}

func TestEngine_SeedIsIdempotent(t *testing.T) {
	e := newTestEngine()
	e.Seed()
	e.Seed()
	assert.Equal(t, 2, e.Graph().EdgeCount())
}

func TestEngine_SeedWithInitialEdges(t *testing.T) {
	e := newTestEngine(WithInitialEdges([]hypergraph.Edge{{0, 1}, {1, 2}}))
	e.Seed()
	assert.Equal(t, []hypergraph.Edge{{0, 1}, {1, 2}}, e.Graph().Edges())
	assert.Equal(t, []int{1, 2, 1}, e.Graph().Degrees())
}

func TestEngine_StepSplit(t *testing.T) {
	src := testutil.NewScriptedSource([]float64{0.2}, []int{0})
	e := newTestEngine(WithSource(src))
	e.Seed()

	rec, ok, err := e.Step(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 0, rec.SeedNode)
	assert.Equal(t, []int{0}, rec.PatternIndices)
	assert.Equal(t, [][]int{{0, 0}}, rec.Pattern)
	assert.Equal(t, "split", rec.Rule)
	assert.Equal(t, rules.LabelSplit, rec.Label)
	assert.Equal(t, [][]int{{0, 0}}, rec.Removed)
	assert.Equal(t, [][]int{{0, 1}, {1, 0}}, rec.Added)

	assert.Equal(t, 2, rec.NodeCount)
	assert.Equal(t, 3, rec.EdgeCount)
	assert.Equal(t, 4, rec.MaxDegree)
	assert.Equal(t, 0, rec.MaxDegreeNode)
	assert.Equal(t, []int{4, 2}, rec.Degrees)
	assert.Equal(t, []int{0, 1}, rec.ActiveNodes)
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 0}}, rec.Sample)
	assert.NotEmpty(t, rec.StateHash)
	assert.True(t, src.Exhausted())

	require.NoError(t, hypergraph.Verify(e.Graph()))
}

func TestEngine_StepToggleAdd(t *testing.T) {
	src := testutil.NewScriptedSource([]float64{0.6}, []int{0})
	e := newTestEngine(WithSource(src))
	e.Seed()

	rec, ok, err := e.Step(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, rules.LabelToggleAdd, rec.Label)
	assert.Empty(t, rec.Removed)
	assert.Equal(t, 3, rec.EdgeCount)
	assert.Equal(t, []int{6}, rec.Degrees)
}

// The reference Toggle-Remove checks the randomly chosen node's self edge
// but removes the matched pattern edge. These tests pin that coupling and
// the self_loop alternative.
func TestEngine_ToggleRemoveRemovesPatternByDefault(t *testing.T) {
	src := testutil.NewScriptedSource([]float64{0.95}, []int{1})
	e := newTestEngine(
		WithSource(src),
		WithInitialEdges([]hypergraph.Edge{{0, 1}, {1, 1}}),
	)
	e.Seed()

	rec, ok, err := e.Step(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "toggle_remove", rec.Rule)
	assert.Equal(t, 1, rec.Focus, "rule checked node 1")
	assert.Equal(t, [][]int{{0, 1}}, rec.Removed, "but removed the matched pattern edge")

	// Node 0 lost its only edge and was pruned; node 1 became node 0.
	assert.Equal(t, 1, rec.Pruned)
	assert.Equal(t, []hypergraph.Edge{{0, 0}}, e.Graph().Edges())
	assert.Equal(t, []int{2}, e.Graph().Degrees())
	require.NoError(t, hypergraph.Verify(e.Graph()))
}

func TestEngine_ToggleRemoveSelfLoopTarget(t *testing.T) {
	src := testutil.NewScriptedSource([]float64{0.95}, []int{1})
	e := newTestEngine(
		WithSource(src),
		WithInitialEdges([]hypergraph.Edge{{0, 1}, {1, 1}}),
		WithToggleRemoveTarget(TargetSelfLoop),
	)
	e.Seed()

	rec, ok, err := e.Step(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, [][]int{{1, 1}}, rec.Removed)
	assert.Equal(t, rules.LabelToggleRemove, rec.Label)
	assert.Equal(t, []hypergraph.Edge{{0, 1}}, e.Graph().Edges())
	assert.Equal(t, []int{1, 1}, e.Graph().Degrees())
}

func TestEngine_SelfLoopTargetLeavesSplitAlone(t *testing.T) {
	src := testutil.NewScriptedSource([]float64{0.1}, []int{0})
	e := newTestEngine(WithSource(src), WithToggleRemoveTarget(TargetSelfLoop))
	e.Seed()

	rec, ok, err := e.Step(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]int{{0, 0}}, rec.Removed, "split still removes the pattern")
}

func TestEngine_StepWithoutActiveNodes(t *testing.T) {
	e := newTestEngine(WithInitialSelfLoops(0))
	e.Seed()

	_, ok, err := e.Step(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, e.Graph().EdgeCount())
}

func TestEngine_RunExhaustsEarly(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(WithInitialSelfLoops(0), WithRecorder(rec))

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ir.RunStatusExhausted, res.Status)
	assert.Equal(t, 0, res.StepsRun)
	assert.Empty(t, rec.steps)
	assert.Equal(t, []string{ir.RunStatusExhausted}, rec.finished)
}

func TestEngine_RunKeepsInvariants(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 99, 2024} {
		var steps []ir.StepRecord
		var e *Engine
		e = New(hypergraph.New(), seed,
			WithLogger(quietLogger()),
			WithMaxSteps(60),
			WithParanoid(true),
			WithObserver(func(rec ir.StepRecord) {
				steps = append(steps, rec)
				require.NoError(t, hypergraph.Verify(e.Graph()), "seed %d step %d", seed, rec.Step)
				for _, edge := range e.Graph().Edges() {
					require.GreaterOrEqual(t, edge.Arity(), hypergraph.MinArity)
				}
			}),
		)

		res, err := e.Run(context.Background())
		require.NoError(t, err, "seed %d", seed)
		assert.Contains(t, []string{ir.RunStatusCompleted, ir.RunStatusExhausted}, res.Status)
		assert.Len(t, steps, res.StepsRun)

		for i, rec := range steps {
			assert.Equal(t, i+1, rec.Step, "steps are numbered from 1")
		}
	}
}

func TestEngine_DefaultRunUsesFullBudget(t *testing.T) {
	e := newTestEngine()
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	if res.Status == ir.RunStatusCompleted {
		assert.Equal(t, DefaultMaxSteps, res.StepsRun)
	}
	total := 0
	for _, n := range res.RuleCounts {
		total += n
	}
	assert.Equal(t, res.StepsRun, total)
}

func TestEngine_SameSeedSameRun(t *testing.T) {
	run := func() ([]string, string) {
		var hashes []string
		e := New(hypergraph.New(), 7,
			WithLogger(quietLogger()),
			WithObserver(func(rec ir.StepRecord) { hashes = append(hashes, rec.StateHash) }),
		)
		res, err := e.Run(context.Background())
		require.NoError(t, err)
		return hashes, res.FinalHash
	}

	h1, f1 := run()
	h2, f2 := run()
	assert.Equal(t, h1, h2)
	assert.Equal(t, f1, f2)
}

func TestEngine_RunRecords(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(WithRecorder(rec), WithMaxSteps(5))

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "run-test", rec.runs[0].ID)
	assert.Equal(t, ir.RunStatusRunning, rec.runs[0].Status)
	assert.Equal(t, int64(DefaultSeed), rec.runs[0].Params.Seed)
	assert.Equal(t, "pattern", rec.runs[0].Params.ToggleRemoveTarget)
	assert.NotEmpty(t, rec.runs[0].ConfigHash)

	assert.Len(t, rec.steps, res.StepsRun)
	for _, s := range rec.steps {
		assert.Equal(t, "run-test", s.RunID)
	}

	require.Len(t, rec.snapshots, 1)
	snap := rec.snapshots[0]
	assert.Equal(t, res.StepsRun, snap.Step)
	assert.Equal(t, e.Graph().Degrees(), snap.Degrees)
	assert.Equal(t, res.FinalHash, ir.MustStateHash(snap.Edges, snap.Degrees, snap.MaxNodeID))

	assert.Equal(t, []string{res.Status}, rec.finished)
}

func TestEngine_RecordFailureAbortsRun(t *testing.T) {
	rec := &fakeRecorder{stepErr: errors.New("disk full")}
	e := newTestEngine(WithRecorder(rec))

	res, err := e.Run(context.Background())
	require.Error(t, err)

	assert.True(t, IsRecordError(err))
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, ir.RunStatusFailed, res.Status)
	assert.Equal(t, []string{ir.RunStatusFailed}, rec.finished, "a failed run is still closed")
}

func TestEngine_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &fakeRecorder{}
	e := newTestEngine(WithRecorder(rec))
	res, err := e.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ir.RunStatusCancelled, res.Status)
	assert.Equal(t, 0, res.StepsRun)
	assert.Equal(t, []string{ir.RunStatusCancelled}, rec.finished)
	assert.NotEmpty(t, res.FinalHash, "the seeded state is still hashed")
}

func TestEngine_HashFailureFailsRun(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(WithRecorder(rec))
	e.hash = func(hypergraph.View) (string, error) {
		return "", errors.New("encoder broke")
	}

	res, err := e.Run(context.Background())
	require.Error(t, err)

	assert.ErrorContains(t, err, "step 1: hash state: encoder broke")
	assert.Equal(t, ir.RunStatusFailed, res.Status)
	assert.Equal(t, 0, res.StepsRun)
	assert.Empty(t, rec.steps, "no record with an empty hash is written")
	assert.Equal(t, []string{ir.RunStatusFailed}, rec.finished)
}

func TestEngine_StepReturnsHashError(t *testing.T) {
	e := newTestEngine()
	e.hash = func(hypergraph.View) (string, error) {
		return "", errors.New("encoder broke")
	}
	e.Seed()

	_, ok, err := e.Step(1)
	assert.True(t, ok)
	assert.ErrorContains(t, err, "encoder broke")
}

func TestEngine_ObserverSeesEveryStep(t *testing.T) {
	var seen []int
	e := newTestEngine(
		WithMaxSteps(4),
		WithObserver(func(rec ir.StepRecord) { seen = append(seen, rec.Step) }),
	)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	want := make([]int, res.StepsRun)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, seen)
}

func TestValidateParams(t *testing.T) {
	valid := ir.RunParams{Seed: 1, Steps: 30, PatternSize: 1, RecencyWindow: 10, InitialSelfLoops: 2, ToggleRemoveTarget: "pattern"}
	require.NoError(t, ValidateParams(valid))

	tests := []struct {
		name   string
		mutate func(*ir.RunParams)
		field  string
	}{
		{"negative steps", func(p *ir.RunParams) { p.Steps = -1 }, "steps"},
		{"zero pattern size", func(p *ir.RunParams) { p.PatternSize = 0 }, "pattern_size"},
		{"negative window", func(p *ir.RunParams) { p.RecencyWindow = -1 }, "recency_window"},
		{"negative self loops", func(p *ir.RunParams) { p.InitialSelfLoops = -2 }, "initial_self_loops"},
		{"unknown target", func(p *ir.RunParams) { p.ToggleRemoveTarget = "both" }, "toggle_remove_target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := ValidateParams(p)
			require.Error(t, err)
			assert.True(t, IsInvalidConfig(err))

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.field, re.Details["field"])
		})
	}
}

func TestNewFromParams_AppliesParams(t *testing.T) {
	p := ir.RunParams{Seed: 5, Steps: 12, PatternSize: 3, RecencyWindow: 4, InitialSelfLoops: 3, ToggleRemoveTarget: "self_loop"}
	e, err := NewFromParams(p, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, p, e.Params())
	e.Seed()
	assert.Equal(t, 3, e.Graph().EdgeCount())
}
