// Package ir provides the serialisable records of a simulation run.
//
// This package contains record types, canonical JSON and content hashes
// only. All other internal packages may import ir; ir imports nothing
// internal.
//
// Key design constraints:
//   - NO float types in records - counts and ids are ints
//   - All JSON tags use snake_case
//   - Steps are logical time; wall-clock timestamps are never recorded
//   - Edges are plain [][]int so records never alias live graph state
package ir
