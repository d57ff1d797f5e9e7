package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/queryir"
	"github.com/roach88/hgsim/internal/querysql"
)

// ReadRun returns the header of one run.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (ir.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, params, config_hash, status, steps_run, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if err != nil {
		return ir.RunInfo{}, err
	}
	return run, nil
}

// ListRuns returns all run headers ordered by id. UUIDv7 run ids make this
// creation order.
//
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, params, config_hash, status, steps_run, engine_version, ir_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunInfo{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (ir.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, params, config_hash, status, steps_run, engine_version, ir_version
		FROM runs
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ReadSteps returns every recorded step of a run in step order.
//
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]ir.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record
		FROM steps
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.StepRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec, err := unmarshalStep(data)
		if err != nil {
			return nil, err
		}
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// QuerySteps returns the steps matching q, which must select from
// queryir.SourceSteps.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QuerySteps(ctx context.Context, q queryir.Select) ([]ir.StepRecord, error) {
	if q.From != queryir.SourceSteps {
		return nil, fmt.Errorf("query steps: source %q is not %q", q.From, queryir.SourceSteps)
	}
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile step query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.StepRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec, err := unmarshalStep(data)
		if err != nil {
			return nil, err
		}
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadStep returns a single step of a run.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadStep(ctx context.Context, runID string, step int) (ir.StepRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM steps WHERE run_id = ? AND step = ?
	`, runID, step).Scan(&data)
	if err != nil {
		return ir.StepRecord{}, err
	}
	return unmarshalStep(data)
}

// RuleCounts returns how many recorded steps of a run each rule produced.
func (s *Store) RuleCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN skipped = 1 THEN 'skipped' ELSE rule END AS r, COUNT(*)
		FROM steps
		WHERE run_id = ?
		GROUP BY r
		ORDER BY r COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rule counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, fmt.Errorf("scan rule count: %w", err)
		}
		counts[rule] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule counts: %w", err)
	}
	return counts, nil
}

// ReadSnapshot returns the final snapshot of a run.
// Returns sql.ErrNoRows if the run has none.
func (s *Store) ReadSnapshot(ctx context.Context, runID string) (ir.Snapshot, error) {
	var (
		encoding string
		hash     string
		data     []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT encoding, state_hash, data FROM snapshots WHERE run_id = ?
	`, runID).Scan(&encoding, &hash, &data)
	if err != nil {
		return ir.Snapshot{}, err
	}

	snap, err := decompressSnapshot(encoding, data)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s: %w", runID, err)
	}

	got, err := ir.StateHash(snap.Edges, snap.Degrees, snap.MaxNodeID)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s: %w", runID, err)
	}
	if got != hash {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s: stored hash %s does not match content %s", runID, hash, got)
	}
	return snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.RunInfo, error) {
	var (
		run        ir.RunInfo
		paramsJSON string
	)
	err := row.Scan(
		&run.ID,
		&paramsJSON,
		&run.ConfigHash,
		&run.Status,
		&run.StepsRun,
		&run.EngineVersion,
		&run.IRVersion,
	)
	if err == sql.ErrNoRows {
		return ir.RunInfo{}, err
	}
	if err != nil {
		return ir.RunInfo{}, fmt.Errorf("scan run: %w", err)
	}

	run.Params, err = unmarshalParams(paramsJSON)
	if err != nil {
		return ir.RunInfo{}, err
	}
	return run, nil
}
