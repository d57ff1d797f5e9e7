// Package rules chooses and builds the rewrite applied at each step.
//
// Generate is a pure function of a read-only graph view, the matched
// pattern and a random Source. It consumes randomness in a fixed order: one
// Float64 for the rule draw, then at most one IntN for picking an active
// node. Reproducing a run therefore only requires replaying the same Source.
package rules

import (
	"github.com/roach88/hgsim/internal/hypergraph"
)

// Rule thresholds over the [0,1) draw.
const (
	SplitBelow     = 0.5
	ToggleAddBelow = 0.9
)

// Kind identifies which branch produced an Outcome.
type Kind int

const (
	// KindSplit replaces the matched edge a->b with a->new and new->random.
	KindSplit Kind = iota + 1
	// KindToggleAdd adds a self edge to a random active node.
	KindToggleAdd
	// KindToggleRemove asks for removal without replacement.
	KindToggleRemove
	// KindToggleRemoveFallback is a Toggle-Remove draw whose safety check
	// failed; it behaves exactly like KindToggleAdd.
	KindToggleRemoveFallback
)

// String returns the identifier used in logs and records.
func (k Kind) String() string {
	switch k {
	case KindSplit:
		return "split"
	case KindToggleAdd:
		return "toggle_add"
	case KindToggleRemove:
		return "toggle_remove"
	case KindToggleRemoveFallback:
		return "toggle_remove_fallback"
	default:
		return "unknown"
	}
}

// Outcome is what the driver applies to the store.
type Outcome struct {
	Kind Kind
	// Add lists the edges to insert, in order.
	Add []hypergraph.Edge
	// Remove asks the driver to remove the matched pattern edges.
	Remove bool
	// Node is the node the rule focused on. Split leaves it at 0.
	Node int
}

// Source is the randomness a rule draw consumes. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Generate draws one rule for pattern and builds its outcome. The pattern
// is normally a single edge; only pattern[0] is inspected. An empty
// pattern yields a zero Outcome without consuming randomness.
func Generate(v hypergraph.View, pattern []hypergraph.Edge, src Source) Outcome {
	if len(pattern) == 0 || len(pattern[0]) == 0 {
		return Outcome{}
	}
	active := v.ActiveNodes()
	edge := pattern[0]

	r := src.Float64()
	switch {
	case r < SplitBelow:
		return split(v, edge, active, src)
	case r < ToggleAddBelow:
		node := pick(active, edge[0], src)
		return Outcome{
			Kind: KindToggleAdd,
			Add:  []hypergraph.Edge{{node, node}},
			Node: node,
		}
	default:
		return toggleRemove(v, edge, active, src)
	}
}

func split(v hypergraph.View, edge hypergraph.Edge, active []int, src Source) Outcome {
	out := Outcome{Kind: KindSplit, Remove: true}
	if len(edge) < hypergraph.MinArity {
		return out
	}
	fresh := v.MaxNodeID() + 1
	target := pick(active, edge[1], src)
	out.Add = []hypergraph.Edge{
		{edge[0], fresh},
		{fresh, target},
	}
	return out
}

// toggleRemove only removes when the chosen node already has a self edge
// and a total degree above 1. The degree test counts the self edge itself.
func toggleRemove(v hypergraph.View, edge hypergraph.Edge, active []int, src Source) Outcome {
	node := pick(active, edge[0], src)
	if v.SelfLoopIndex(node) >= 0 && v.Degree(node) > 1 {
		return Outcome{Kind: KindToggleRemove, Remove: true, Node: node}
	}
	return Outcome{
		Kind: KindToggleRemoveFallback,
		Add:  []hypergraph.Edge{{node, node}},
		Node: node,
	}
}

// pick draws uniformly from active, or returns fallback without drawing
// when active is empty.
func pick(active []int, fallback int, src Source) int {
	if len(active) == 0 {
		return fallback
	}
	return active[src.IntN(len(active))]
}
