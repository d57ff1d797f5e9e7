package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hgsim/internal/ir"
)

// GoldenDir is the directory, next to a scenario file, holding its golden
// trace.
const GoldenDir = "golden"

// GoldenBytes returns the canonical golden form of a scenario result:
// scenario name, final status, steps run and every step record, as
// canonical JSON without a trailing newline.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, 0, len(result.Trace))
	for _, rec := range result.Trace {
		steps = append(steps, rec.Map())
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"status":        result.Status,
		"steps_run":     result.StepsRun,
		"steps":         steps,
	})
}

// GoldenPath maps scenarios/x.yaml to scenarios/golden/x.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), GoldenDir, stem+".golden")
}

// WriteGolden stores the golden form of result at path, creating the
// golden directory if needed.
func WriteGolden(path, scenarioName string, result *Result) error {
	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

// MatchGolden reports whether result matches the golden file at path byte
// for byte. A missing file is reported through the returned error so the
// caller can tell it apart with os.IsNotExist.
func MatchGolden(path, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	got, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return false, fmt.Errorf("marshal trace: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// RunWithGolden runs scenario and checks its trace against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden checks an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}
	goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", GoldenDir)),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenarioName, data)
	return nil
}
