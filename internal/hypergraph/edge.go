package hypergraph

// MinArity is the smallest edge the store retains.
const MinArity = 2

// Edge is an ordered sequence of node ids. The rewriting rules only ever
// produce two-element edges, directed from the first element to the second.
type Edge []int

// Arity returns the number of node occurrences in the edge.
func (e Edge) Arity() int {
	return len(e)
}

// IsSelfLoop reports whether the edge's first and second endpoints are the
// same node.
func (e Edge) IsSelfLoop() bool {
	return len(e) >= 2 && e[0] == e[1]
}

// Contains reports whether node occurs anywhere in the edge.
func (e Edge) Contains(node int) bool {
	for _, n := range e {
		if n == node {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not alias e.
func (e Edge) Clone() Edge {
	if e == nil {
		return nil
	}
	out := make(Edge, len(e))
	copy(out, e)
	return out
}

// Ints returns the edge as a plain int slice (copied).
func (e Edge) Ints() []int {
	return []int(e.Clone())
}
