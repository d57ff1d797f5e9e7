package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
)

// InitialLine summarises the graph before the first step.
func InitialLine(v hypergraph.View, sampleSize int) string {
	sample := hypergraph.Sample(v, sampleSize)
	raw := make([][]int, len(sample))
	for i, e := range sample {
		raw[i] = e.Ints()
	}
	return fmt.Sprintf("Initial: Nodes: %d, Edges: %d, Max Degree: %d (Node %d), Active Nodes: %s, Degrees: %s, Sample: %s",
		v.NodeCount(),
		v.EdgeCount(),
		v.MaxDegree(),
		v.MaxDegreeNode(),
		formatInts(v.ActiveNodes()),
		formatInts(v.Degrees()),
		formatEdges(raw))
}

// StatusLine summarises one recorded step, including the rule label.
func StatusLine(rec ir.StepRecord) string {
	label := rec.Label
	if rec.Skipped {
		label = "none"
	}
	return fmt.Sprintf("Step %d: Nodes: %d, Edges: %d, Max Degree: %d (Node %d), Rule: %s, Active Nodes: %s, Degrees: %s, Sample: %s",
		rec.Step,
		rec.NodeCount,
		rec.EdgeCount,
		rec.MaxDegree,
		rec.MaxDegreeNode,
		label,
		formatInts(rec.ActiveNodes),
		formatInts(rec.Degrees),
		formatEdges(rec.Sample))
}

// ExhaustedLine reports a run that ran out of active nodes at step.
func ExhaustedLine(step int) string {
	return fmt.Sprintf("Step %d: No active nodes!", step)
}

func formatInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatEdges(edges [][]int) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = formatInts(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
