package hypergraph

// Restore rebuilds a store from a recorded final state: edges in storage
// order, the size of the degree table and the max node id. Degrees are
// recounted from the edges, so ids beyond the last referenced one keep
// degree 0. The recency record is not part of a snapshot and starts empty.
func Restore(edges []Edge, tableSize, maxNodeID int, opts ...Option) *Store {
	s := New(opts...)
	if tableSize > 0 {
		s.grow(tableSize - 1)
	}
	for _, e := range edges {
		s.AddHyperedge(e)
	}
	if maxNodeID > s.maxNodeID {
		s.maxNodeID = maxNodeID
	}
	return s
}
