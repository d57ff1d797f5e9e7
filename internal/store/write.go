package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/hgsim/internal/ir"
)

// WriteRun inserts the run header. Uses ON CONFLICT(id) DO NOTHING, so
// writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run ir.RunInfo) error {
	paramsJSON, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seed, params, config_hash, status, steps_run, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Params.Seed,
		paramsJSON,
		run.ConfigHash,
		run.Status,
		run.StepsRun,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// RecordStep appends one step record. The run must exist (foreign key).
// A second record for the same (run, step) is silently ignored.
func (s *Store) RecordStep(ctx context.Context, rec ir.StepRecord) error {
	recordJSON, err := marshalStep(rec)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}

	skipped := 0
	if rec.Skipped {
		skipped = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, step, rule, label, skipped, state_hash, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`,
		rec.RunID,
		rec.Step,
		rec.Rule,
		rec.Label,
		skipped,
		rec.StateHash,
		recordJSON,
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// FinishRun sets the final status and step count of a run.
// Returns sql.ErrNoRows (wrapped) if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, runID, status string, stepsRun int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, steps_run = ? WHERE id = ?
	`, status, stepsRun, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// WriteSnapshot stores the final graph state of a run, compressed.
// The run must exist (foreign key). One snapshot per run; later writes are
// ignored.
func (s *Store) WriteSnapshot(ctx context.Context, snap ir.Snapshot) error {
	hash, err := ir.StateHash(snap.Edges, snap.Degrees, snap.MaxNodeID)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	data, err := compressSnapshot(snap)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(run_id, step, state_hash, encoding, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		snap.RunID,
		snap.Step,
		hash,
		encodingZstdJSON,
		data,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
