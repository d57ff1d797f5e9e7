package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgsim/internal/config"
	"github.com/roach88/hgsim/internal/engine"
	"github.com/roach88/hgsim/internal/logging"
	"github.com/roach88/hgsim/internal/store"
	"github.com/roach88/hgsim/internal/testutil"
)

// recordTestRun records a seeded run with default settings into dbPath.
func recordTestRun(t *testing.T, dbPath, runID string, seed int64, steps int) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	p := config.Default().Params()
	p.Seed = seed
	p.Steps = steps

	eng, err := engine.NewFromParams(p,
		engine.WithLogger(logging.Discard()),
		engine.WithRecorder(st),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	)
	require.NoError(t, err)
	_, err = eng.Run(context.Background())
	require.NoError(t, err)
}

// forgeRun copies the steps of run from into a new run whose seed is
// different, so replaying it cannot reproduce the log.
func forgeRun(t *testing.T, dbPath, from, runID string) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(ctx, from)
	require.NoError(t, err)
	steps, err := st.ReadSteps(ctx, from)
	require.NoError(t, err)

	run.ID = runID
	run.Params.Seed++
	require.NoError(t, st.WriteRun(ctx, run))
	for _, rec := range steps {
		rec.RunID = runID
		require.NoError(t, st.RecordStep(ctx, rec))
	}
}

func emptyDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	return dbPath
}

func executeReplay(format string, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := executeReplay("text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayNonExistentDatabase(t *testing.T) {
	_, err := executeReplay("text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestReplayEmptyDatabase(t *testing.T) {
	out, err := executeReplay("text", "--db", emptyDatabase(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found")
}

func TestReplayEmptyDatabaseJSON(t *testing.T) {
	out, err := executeReplay("json", "--db", emptyDatabase(t))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.TotalRuns)
	assert.True(t, resp.Data.AllIdentical)
}

func TestReplayRecordedRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "run-a", 42, 30)

	out, err := executeReplay("text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 run(s)")
	assert.Contains(t, out, "✓ Run: run-a")
	assert.Contains(t, out, "Steps: 30 recorded, 30 replayed (completed)")
	assert.Contains(t, out, "All runs verified deterministic")
}

func TestReplayAllRunsJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "run-a", 1, 10)
	recordTestRun(t, dbPath, "run-b", 2, 15)

	out, err := executeReplay("json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalRuns)
	assert.True(t, resp.Data.AllIdentical)
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "run-a", resp.Data.Runs[0].RunID)
	assert.Equal(t, 10, resp.Data.Runs[0].Replayed)
	assert.Equal(t, 15, resp.Data.Runs[1].Replayed)
}

func TestReplaySpecificRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "run-a", 1, 5)
	recordTestRun(t, dbPath, "run-b", 2, 5)

	out, err := executeReplay("text", "--db", dbPath, "--run", "run-b")
	require.NoError(t, err)
	assert.Contains(t, out, "run-b")
	assert.NotContains(t, out, "run-a")
}

func TestReplayUnknownRun(t *testing.T) {
	out, err := executeReplay("json", "--db", emptyDatabase(t), "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestReplayDetectsDivergence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "run-a", 42, 30)
	forgeRun(t, dbPath, "run-a", "run-forged")

	out, err := executeReplay("text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ Run: run-a")
	assert.Contains(t, out, "✗ Run: run-forged")
	assert.Contains(t, out, "Diverged at step")
	assert.Contains(t, out, "Determinism verification failed")
}

func TestReplayDetectsDivergenceJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "run-a", 42, 30)
	forgeRun(t, dbPath, "run-a", "run-forged")

	out, err := executeReplay("json", "--db", dbPath, "--run", "run-forged")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeDiverged, resp.Error.Code)
	assert.False(t, resp.Data.AllIdentical)
	require.Len(t, resp.Data.Runs, 1)
	assert.Positive(t, resp.Data.Runs[0].DivergedAt)
}

func TestReplayHelpText(t *testing.T) {
	out, err := executeReplay("text", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay")
	assert.Contains(t, out, "--db")
	assert.Contains(t, out, "--run")
	assert.Contains(t, out, "determinism")
}
