package hypergraph

// View is the read-only query surface of a Store. Neighborhood search, rule
// generation and rendering depend on View so they cannot mutate the graph.
type View interface {
	NodeCount() int
	EdgeCount() int
	MaxNodeID() int
	Degree(node int) int
	Degrees() []int
	MaxDegree() int
	MaxDegreeNode() int
	ActiveNodes() []int
	Edge(i int) (Edge, bool)
	Edges() []Edge
	EachEdge(fn func(i int, e Edge) bool)
	SelfLoopIndex(node int) int
}

var _ View = (*Store)(nil)

// SelfLoopCounts returns, for every id in the degree table, how many
// two-element self edges sit on it.
func SelfLoopCounts(v View) []int {
	counts := make([]int, len(v.Degrees()))
	v.EachEdge(func(_ int, e Edge) bool {
		if len(e) == 2 && e[0] == e[1] && e[0] < len(counts) {
			counts[e[0]]++
		}
		return true
	})
	return counts
}

// Sample returns copies of the first n edges in storage order.
func Sample(v View, n int) []Edge {
	if n <= 0 {
		return []Edge{}
	}
	out := make([]Edge, 0, n)
	v.EachEdge(func(_ int, e Edge) bool {
		if len(out) == n {
			return false
		}
		out = append(out, e.Clone())
		return true
	})
	return out
}
