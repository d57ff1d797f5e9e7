// Package render turns hypergraph state into text: Graphviz DOT for the
// final graph and one-line status summaries for each step.
package render

import (
	"fmt"
	"strings"

	"github.com/roach88/hgsim/internal/hypergraph"
)

const (
	activeColor   = "steelblue"
	inactiveColor = "lightgray"
	selfLoopColor = "red"
)

// RenderDOT produces a Graphviz DOT representation of v.
//
// Every id in the degree table becomes a node; degree-0 nodes (still
// protected by recency) are drawn dashed. Self edges are not drawn as arcs:
// each one adds a red periphery ring to its node. Every other edge becomes
// a chain of arcs through its endpoints in order, so parallel edges show as
// parallel arcs.
func RenderDOT(v hypergraph.View, title string) string {
	degrees := v.Degrees()
	selfLoops := hypergraph.SelfLoopCounts(v)

	var b strings.Builder
	b.WriteString("digraph hypergraph {\n")
	if title != "" {
		b.WriteString(fmt.Sprintf("  label=%q;\n", title))
		b.WriteString("  labelloc=t;\n")
	}
	b.WriteString("  layout=circo;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("  edge [arrowsize=0.5];\n\n")

	for node, d := range degrees {
		attrs := []string{
			fmt.Sprintf("label=%q", fmt.Sprint(node)),
			fmt.Sprintf("tooltip=%q", fmt.Sprintf("degree=%d", d)),
		}
		if d == 0 {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", inactiveColor), `style="filled,dashed"`)
		} else {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", activeColor))
		}
		if loops := selfLoops[node]; loops > 0 {
			attrs = append(attrs,
				fmt.Sprintf("peripheries=%d", loops+1),
				fmt.Sprintf("color=%q", selfLoopColor))
		}
		b.WriteString(fmt.Sprintf("  n%d [%s];\n", node, strings.Join(attrs, ", ")))
	}
	b.WriteString("\n")

	v.EachEdge(func(_ int, e hypergraph.Edge) bool {
		if e.Arity() == 2 && e.IsSelfLoop() {
			return true
		}
		for i := 0; i+1 < len(e); i++ {
			b.WriteString(fmt.Sprintf("  n%d -> n%d;\n", e[i], e[i+1]))
		}
		return true
	})

	b.WriteString("}\n")
	return b.String()
}
