// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store is an append-only log with:
//   - Runs: one row per run with its parameters and final status
//   - Steps: one row per applied step, carrying the full step record
//   - Snapshots: the final graph state of a run, zstd-compressed
//
// # Ordering
//
//   - Steps are keyed and read by (run_id, step ASC)
//   - Runs are listed by id COLLATE BINARY; UUIDv7 ids sort by creation time
//   - Nothing is ordered by wall-clock time
//
// # Idempotency
//
// Step and snapshot inserts use ON CONFLICT DO NOTHING, so recording the
// same step twice leaves a single row. Re-recording with a different state
// hash is a divergence and is reported by the replay command, not here.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Records are stored as canonical JSON from internal/ir.
package store
