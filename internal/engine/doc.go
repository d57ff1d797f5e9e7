// Package engine drives the hypergraph rewriting simulation.
//
// ARCHITECTURE:
//
// Single-Writer Step Loop:
// One Engine owns one hypergraph.Store for the lifetime of a run. Every step
// happens in the goroutine that called Run, strictly in this order:
//
//  1. Seed selection: the lowest active node id
//  2. Neighborhood search: LocalConnected(seed, patternSize)
//  3. Rule draw: rules.Generate on the first discovered edge
//  4. Mutation: removal (if requested) then insertion of new edges
//  5. Compaction at the current step number
//
// A run ends when the step budget is used up or when no active node remains.
// Running out of active nodes is a normal end, not an error.
//
// Determinism:
// Randomness comes from a single seeded source consumed in a fixed order per
// step. Each step record carries a content hash of the post-step state, so a
// recorded run can be re-simulated and compared step by step (VerifyReplay).
//
// Recording:
// A Recorder (normally *store.Store) receives the run header, every step
// record and the final snapshot. Record failures abort the run with
// ErrCodeRecordFailed; the simulation itself never fails.
package engine
