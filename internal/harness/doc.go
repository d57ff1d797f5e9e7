// Package harness runs simulation scenarios and checks their outcome.
//
// A scenario fixes everything a run depends on: parameters, the initial
// edges, and optionally the exact random draws. Scripted draws make the
// trace independent of the PRNG, so scenarios double as executable
// documentation of the rewrite rules.
//
// # Scenario Format
//
//	name: split_then_toggle
//	description: "Split the first self edge, then toggle on the new node"
//	steps: 3
//	seed: 42                     # ignored when draws are given
//	toggle_remove_target: pattern
//	initial_edges:               # default: one node with two self edges
//	  - [0, 0]
//	  - [0, 0]
//	draws:
//	  floats: [0.2, 0.7, 0.95]   # one rule draw per applied step
//	  ints: [0, 1, 1]            # one per active-node pick
//	assertions:
//	  - type: final_counts
//	    nodes: 2
//	    edges: 3
//	  - type: rule_count
//	    rule: split
//	    count: 1
//	  - type: label_sequence
//	    labels: [Split, Toggle Add, Toggle Remove]
//	  - type: invariants
//	  - type: status
//	    status: completed
//
// # Assertion Types
//
//   - final_counts: node count, edge count and max degree of the final graph
//   - rule_count: how many recorded steps applied a rule kind
//   - label_sequence: status labels of the applied steps, in order
//   - invariants: degree and arity invariants of the final graph and of every recorded step
//   - status: how the run ended
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a fixed run id
// (run_id, default "test-run-default"), so the recorded trace is byte-stable
// and can be compared against golden files with RunWithGolden.
package harness
