package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/testutil"
)

// runScripted runs two scripted runs against m: split, toggle add and
// toggle remove to completion, then a single toggle remove that drains
// the graph.
func runScripted(t *testing.T, m *Metrics) {
	t.Helper()

	first := newTestEngine(
		WithMetrics(m),
		WithMaxSteps(3),
		WithSource(testutil.NewScriptedSource([]float64{0.2, 0.7, 0.95}, []int{0, 1, 1})),
	)
	res, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, ir.RunStatusCompleted, res.Status)

	second := newTestEngine(
		WithMetrics(m),
		WithMaxSteps(5),
		WithInitialEdges([]hypergraph.Edge{{0, 0}}),
		WithSource(testutil.NewScriptedSource([]float64{0.95}, []int{0})),
	)
	res, err = second.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, ir.RunStatusExhausted, res.Status)
}

func TestMetrics_CountScriptedRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	runScripted(t, m)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Steps.WithLabelValues("split")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Steps.WithLabelValues("toggle_add")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.Steps.WithLabelValues("toggle_remove")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Steps.WithLabelValues("skipped")))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.NodesPruned))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Runs.WithLabelValues(ir.RunStatusCompleted)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Runs.WithLabelValues(ir.RunStatusExhausted)))

	// Gauges hold the last step of the draining run.
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Edges))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Nodes))
}

func TestMetrics_PrivateRegistryIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := newTestEngine(WithMetrics(m), WithMaxSteps(2))
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, promtest.CollectAndCount(m.Runs))
	count, err := promtest.GatherAndCount(reg, "hgsim_engine_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Runs.WithLabelValues(ir.RunStatusCompleted)))
}

func TestGatherSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	runScripted(t, NewMetrics(reg))

	samples, err := GatherSamples(reg)
	require.NoError(t, err)

	lines := make([]string, len(samples))
	for i, s := range samples {
		lines[i] = s.String()
	}
	assert.Equal(t, []string{
		"hgsim_engine_active_nodes 0",
		"hgsim_engine_edges 0",
		"hgsim_engine_nodes_pruned_total 1",
		`hgsim_engine_runs_total{status="completed"} 1`,
		`hgsim_engine_runs_total{status="exhausted"} 1`,
		`hgsim_engine_steps_total{rule="split"} 1`,
		`hgsim_engine_steps_total{rule="toggle_add"} 1`,
		`hgsim_engine_steps_total{rule="toggle_remove"} 2`,
	}, lines)
}

func TestGatherSamples_EmptyRegistry(t *testing.T) {
	samples, err := GatherSamples(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}

func TestMetricSample_String(t *testing.T) {
	s := MetricSample{Name: "x_total", Labels: map[string]string{"b": "2", "a": "1"}, Value: 2.5}
	assert.Equal(t, `x_total{a="1",b="2"} 2.5`, s.String())
	assert.Equal(t, "y 3", MetricSample{Name: "y", Value: 3}.String())
}
