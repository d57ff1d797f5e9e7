package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/hgsim/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run header with default parameters.
func createTestRun(id string) ir.RunInfo {
	return ir.RunInfo{
		ID: id,
		Params: ir.RunParams{
			Seed:               42,
			Steps:              30,
			PatternSize:        1,
			RecencyWindow:      10,
			InitialSelfLoops:   2,
			ToggleRemoveTarget: "pattern",
		},
		ConfigHash:    "test-config-hash",
		Status:        ir.RunStatusRunning,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestStep creates a step record whose state is the two-self-edge
// initial graph.
func createTestStep(runID string, step int, rule string) ir.StepRecord {
	edges := [][]int{{0, 0}, {0, 0}}
	degrees := []int{4}
	return ir.StepRecord{
		RunID:          runID,
		Step:           step,
		SeedNode:       0,
		PatternIndices: []int{0},
		Pattern:        [][]int{{0, 0}},
		Rule:           rule,
		Label:          "Toggle Add",
		Added:          [][]int{{0, 0}},
		NodeCount:      1,
		EdgeCount:      len(edges),
		MaxDegree:      4,
		ActiveNodes:    []int{0},
		Degrees:        degrees,
		Sample:         edges,
		StateHash:      ir.MustStateHash(edges, degrees, 0),
	}
}

func mustWriteRun(t *testing.T, s *Store, run ir.RunInfo) {
	t.Helper()
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}
