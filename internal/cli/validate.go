package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hgsim/internal/config"
	"github.com/roach88/hgsim/internal/harness"
)

// File kinds recognised by validate.
const (
	KindConfig   = "config"
	KindScenario = "scenario"
)

// FileValidation holds the validation result of one file.
type FileValidation struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate run configs and scenario files",
		Long: `Validate run configuration and scenario YAML files without running them.

A document with an "assertions" key is checked as a scenario; anything
else is checked as a run configuration against the config schema.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (file not readable)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{
		Valid: true,
		Files: make([]FileValidation, 0, len(paths)),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot read %s", path), err)
		}

		fv := validateDocument(path, data)
		formatter.VerboseLog("Validated %s as %s", path, fv.Kind)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// validateDocument classifies data and checks it with the matching loader.
func validateDocument(path string, data []byte) FileValidation {
	fv := FileValidation{Path: path, Kind: detectKind(data)}

	var err error
	switch fv.Kind {
	case KindScenario:
		_, err = harness.ParseScenario(data)
	default:
		var cfg *config.Config
		if cfg, err = config.Parse(data); err == nil {
			err = cfg.Validate()
		}
	}

	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Valid = true
	return fv
}

// detectKind reports KindScenario for documents with a top-level
// "assertions" key. Unparseable documents are reported as configs and fail
// there.
func detectKind(data []byte) string {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return KindConfig
	}
	if _, ok := doc["assertions"]; ok {
		return KindScenario
	}
	return KindConfig
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, fv := range result.Files {
		fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", fv.Path, fv.Kind)
	}
	fmt.Fprintln(formatter.Writer, "✓ All files valid")
	return nil
}

// outputValidationErrors outputs per-file validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	invalid := 0
	var first FileValidation
	for _, fv := range result.Files {
		if !fv.Valid {
			if invalid == 0 {
				first = fv
			}
			invalid++
		}
	}

	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%s: %s", first.Path, first.Error),
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", invalid))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", fv.Path, fv.Kind)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s (%s)\n", fv.Path, fv.Kind)
		fmt.Fprintf(formatter.Writer, "  %s\n\n", fv.Error)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", invalid))
}
