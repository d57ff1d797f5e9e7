package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/rules"
)

func intp(n int) *int { return &n }

func scriptedScenario() *Scenario {
	return &Scenario{
		Name:        "scripted",
		Description: "split, toggle add, toggle remove",
		Steps:       3,
		Draws: &Draws{
			Floats: []float64{0.2, 0.7, 0.95},
			Ints:   []int{0, 1, 1},
		},
		Assertions: []Assertion{{Type: AssertInvariants}},
	}
}

func TestRun_ScriptedScenario(t *testing.T) {
	result, err := Run(scriptedScenario())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "test-run-default", result.RunID)
	assert.Equal(t, ir.RunStatusCompleted, result.Status)
	assert.Equal(t, 3, result.StepsRun)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, []string{rules.LabelSplit, rules.LabelToggleAdd, rules.LabelToggleRemove}, result.Labels())

	// Toggle-Remove checked node 1 but removed the matched pattern edge.
	last := result.Trace[2]
	assert.Equal(t, 1, last.Focus)
	assert.Equal(t, [][]int{{0, 0}}, last.Removed)

	assert.Equal(t, FinalState{Nodes: 2, Edges: 3, MaxDegree: 4, MaxDegreeNode: 1, Degrees: []int{2, 4}}, result.Final)
	assert.Equal(t, map[string]int{"split": 1, "toggle_add": 1, "toggle_remove": 1}, result.RuleCounts)
}

func TestRun_SelfLoopTarget(t *testing.T) {
	scenario := scriptedScenario()
	scenario.ToggleRemoveTarget = "self_loop"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, [][]int{{1, 1}}, result.Trace[2].Removed)
	assert.Equal(t, []int{4, 2}, result.Final.Degrees)
}

func TestRun_TraceIsStableAcrossRuns(t *testing.T) {
	first, err := Run(scriptedScenario())
	require.NoError(t, err)
	second, err := Run(scriptedScenario())
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_CustomRunID(t *testing.T) {
	scenario := scriptedScenario()
	scenario.RunID = "fixed-run"

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, "fixed-run", result.RunID)
	for _, rec := range result.Trace {
		assert.Equal(t, "fixed-run", rec.RunID)
	}
}

func TestRun_Exhaustion(t *testing.T) {
	scenario := &Scenario{
		Name:         "drain",
		Description:  "remove the only edge",
		Steps:        5,
		InitialEdges: [][]int{{0, 0}},
		Draws:        &Draws{Floats: []float64{0.95}, Ints: []int{0}},
		Assertions:   []Assertion{{Type: AssertStatus, Status: ir.RunStatusExhausted}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.StepsRun)
	assert.Len(t, result.Trace, 1)
	assert.Equal(t, 1, result.Trace[0].Pruned)
	assert.Equal(t, 0, result.Final.Nodes)
}

func TestRun_SeededScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "seeded",
		Description: "reference run",
		Seed:        42,
		Steps:       30,
		Assertions:  []Assertion{{Type: AssertInvariants}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, result.StepsRun)

	total := 0
	for _, n := range result.RuleCounts {
		total += n
	}
	assert.Equal(t, result.StepsRun, total)
}

func TestRun_AssertionFailureFailsScenario(t *testing.T) {
	scenario := scriptedScenario()
	scenario.Assertions = []Assertion{
		{Type: AssertFinalCounts, Nodes: intp(7)},
		{Type: AssertLabelSequence, Labels: []string{rules.LabelSplit}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "nodes=7")
	assert.Contains(t, result.Errors[1], "label_sequence")
}

func TestRun_TooFewDraws(t *testing.T) {
	scenario := scriptedScenario()
	scenario.Draws = &Draws{Floats: []float64{0.2}, Ints: []int{0}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more scripted draws")
}

func TestRun_UnusedDrawsFailScenario(t *testing.T) {
	scenario := scriptedScenario()
	scenario.Steps = 1

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "not fully consumed")
}

func TestRun_InvalidParams(t *testing.T) {
	scenario := scriptedScenario()
	scenario.ToggleRemoveTarget = "both"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toggle_remove_target")
}

func TestScenario_ParamsDefaults(t *testing.T) {
	p := (&Scenario{Steps: 4}).Params()

	assert.Equal(t, ir.RunParams{
		Steps:              4,
		PatternSize:        1,
		RecencyWindow:      10,
		InitialSelfLoops:   2,
		ToggleRemoveTarget: "pattern",
	}, p)

	p = (&Scenario{Steps: 4, RecencyWindow: intp(0), InitialSelfLoops: intp(0)}).Params()
	assert.Equal(t, 0, p.RecencyWindow)
	assert.Equal(t, 0, p.InitialSelfLoops)
}
