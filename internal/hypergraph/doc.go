// Package hypergraph holds the mutable state of a rewriting simulation.
//
// The Store is an arena: hyperedges are plain slices of integer node ids
// and the degree table is indexed by those ids. Nodes have no structure of
// their own beyond a degree counter and, for freshly added nodes, a creation
// step. Compact is the arena's garbage collector: it drops zero-degree nodes
// that are past the recency window, remaps the survivors onto a dense id
// range and rewrites every edge that referenced them.
//
// # Invariants
//
// After every mutation:
//   - Degree(n) equals the number of occurrences of n across all edges
//   - every stored edge has arity >= 2
//   - the degree table covers every id referenced by an edge or added explicitly
//   - MaxNodeID() >= every id ever referenced
//
// # Error Policy
//
// Nothing in this package returns an error or panics on bad input. Short
// edges are dropped, out-of-range or repeated removal indices are ignored,
// and counters saturate at zero instead of wrapping.
//
// The Store is not safe for concurrent use. A simulation run owns exactly
// one Store; outside readers get the read-only View interface.
package hypergraph
