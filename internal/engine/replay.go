package engine

import (
	"context"
	"fmt"

	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/logging"
)

// Replay is structural: a run is fully determined by its RunParams, so
// replaying means building a fresh engine from the recorded params, running
// it, and comparing the state hash of every step against the log.
//
// The hash covers edges in storage order, the degree table and the max node
// id. Two runs that agree on every hash made the same mutations in the same
// order, including swap-removal positions and compaction remaps.

// ReplayReport describes a replay comparison.
type ReplayReport struct {
	RunID    string `json:"run_id"`
	Recorded int    `json:"recorded"`
	Replayed int    `json:"replayed"`
	Compared int    `json:"compared"`

	// DivergedAt is the first step whose hash differs, 0 if none.
	DivergedAt int    `json:"diverged_at,omitempty"`
	Expected   string `json:"expected,omitempty"`
	Actual     string `json:"actual,omitempty"`
}

// Identical reports whether every recorded step was reproduced.
func (r *ReplayReport) Identical() bool {
	return r.DivergedAt == 0 && r.Recorded == r.Replayed
}

// VerifyReplay re-simulates run and compares it with recorded, which must
// be in step order. Runs that were cancelled, failed or never finished are
// compared up to their last recorded step. It returns a ReplayDiverged
// RuntimeError alongside the report when the replay differs.
func VerifyReplay(ctx context.Context, run ir.RunInfo, recorded []ir.StepRecord, opts ...EngineOption) (*ReplayReport, error) {
	var replayed []ir.StepRecord
	base := []EngineOption{
		WithLogger(logging.Discard()),
		WithRunIDGenerator(staticRunID(run.ID)),
		WithObserver(func(rec ir.StepRecord) {
			replayed = append(replayed, rec)
		}),
	}

	// A run that did not finish on its own stopped at an arbitrary step;
	// only the recorded prefix can be compared.
	switch run.Status {
	case ir.RunStatusCompleted, ir.RunStatusExhausted:
	default:
		base = append(base, WithMaxSteps(len(recorded)))
	}

	e, err := NewFromParams(run.Params, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", run.ID, err)
	}
	if _, err := e.Run(ctx); err != nil {
		return nil, fmt.Errorf("replay run %s: %w", run.ID, err)
	}

	report := &ReplayReport{
		RunID:    run.ID,
		Recorded: len(recorded),
		Replayed: len(replayed),
	}

	n := min(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		want, got := recorded[i], replayed[i]
		report.Compared++
		if want.Step != got.Step || want.StateHash != got.StateHash {
			report.DivergedAt = want.Step
			report.Expected = want.StateHash
			report.Actual = got.StateHash
			return report, NewDivergenceError(run.ID, want.Step, want.StateHash, got.StateHash)
		}
	}

	switch {
	case len(recorded) > n:
		report.DivergedAt = recorded[n].Step
		report.Expected = recorded[n].StateHash
		return report, NewDivergenceError(run.ID, recorded[n].Step, recorded[n].StateHash, "")
	case len(replayed) > n:
		report.DivergedAt = replayed[n].Step
		report.Actual = replayed[n].StateHash
		return report, NewDivergenceError(run.ID, replayed[n].Step, "", replayed[n].StateHash)
	}

	return report, nil
}
