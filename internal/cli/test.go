package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hgsim/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden files from the current traces
	Filter string // glob over scenario file names
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Pass     bool     `json:"pass"`
	Status   string   `json:"status,omitempty"`
	StepsRun int      `json:"steps_run"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult aggregates a test invocation.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-path>",
		Short: "Run simulation scenarios",
		Long: `Run YAML simulation scenarios and check their assertions.

Each scenario runs in an in-memory run log with invariant checks after
every step. When a golden file exists at golden/<name>.golden next to the
scenario, the recorded trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  hgsim test ./scenarios
  hgsim test ./scenarios --filter "toggle_*"
  hgsim test ./scenarios --update
  hgsim test ./scenarios/split_then_toggle.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, root string) error {
	files, err := harness.FindScenarios(root, opts.Filter)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			return NewExitError(ExitCommandError, "scenarios path not found: "+root)
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	w := cmd.OutOrStdout()
	asJSON := opts.Format == "json"
	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}

	if len(files) == 0 && !asJSON {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, file := range files {
		res := runScenario(file, opts.Update)
		if !asJSON {
			printScenarioResult(w, res, opts.Update)
		}
		result.add(res)
	}

	if asJSON {
		if err := encodeTestResult(w, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	if !asJSON {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

// runScenario loads, runs and golden-checks one scenario file. With update
// set the golden file is rewritten instead of compared.
func runScenario(file string, update bool) ScenarioResult {
	res := ScenarioResult{
		Name: strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		Path: file,
	}
	fail := func(format string, args ...any) ScenarioResult {
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
		res.Pass = false
		return res
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	res.Name = scenario.Name

	run, err := harness.Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	res.Status = run.Status
	res.StepsRun = run.StepsRun
	res.Errors = run.Errors
	res.Pass = run.Pass

	goldenPath := harness.GoldenPath(file)
	if update {
		if err := harness.WriteGolden(goldenPath, scenario.Name, run); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		return res
	}

	match, err := harness.MatchGolden(goldenPath, scenario.Name, run)
	switch {
	case os.IsNotExist(err):
		// No golden file: assertions alone decide.
	case err != nil:
		return fail("golden comparison failed: %v", err)
	case !match:
		return fail("trace does not match golden file (run with --update to regenerate)")
	}
	return res
}

func printScenarioResult(w io.Writer, res ScenarioResult, updated bool) {
	switch {
	case res.Pass && updated:
		fmt.Fprintf(w, "✓ %s (golden updated)\n", res.Name)
	case res.Pass:
		fmt.Fprintf(w, "✓ %s\n", res.Name)
	default:
		fmt.Fprintf(w, "✗ %s\n", res.Name)
		for _, e := range res.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}

func encodeTestResult(w io.Writer, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	return (&OutputFormatter{Format: "json", Writer: w}).Encode(resp)
}
