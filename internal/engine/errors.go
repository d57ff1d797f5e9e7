package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected around a simulation run.
//
// The step loop itself never fails. Runtime errors come from the edges of a
// run:
//   - Record failed: the run log rejected a write
//   - Invalid config: run parameters out of range
//   - Replay diverged: a re-simulated step hash differs from the recorded one
//   - Invariant violated: paranoid verification caught a corrupt store
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	RunID   string            // empty if unknown
	Step    int               // 0 if none
	Details map[string]string // e.g. expected/actual hashes
	Err     error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRecordFailed indicates the recorder returned an error.
	ErrCodeRecordFailed RuntimeErrorCode = "RECORD_FAILED"

	// ErrCodeInvalidConfig indicates run parameters failed validation.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"

	// ErrCodeReplayDiverged indicates a replayed step produced a different state.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"

	// ErrCodeInvariantViolated indicates the store failed verification.
	ErrCodeInvariantViolated RuntimeErrorCode = "INVARIANT_VIOLATED"
)

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RunID != "" && e.Step > 0:
		msg = fmt.Sprintf("%s (run=%s, step=%d)", msg, e.RunID, e.Step)
	case e.RunID != "":
		msg = fmt.Sprintf("%s (run=%s)", msg, e.RunID)
	case e.Step > 0:
		msg = fmt.Sprintf("%s (step=%d)", msg, e.Step)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsRecordError reports whether err, or anything it wraps, is a recorder
// failure.
func IsRecordError(err error) bool {
	return hasCode(err, ErrCodeRecordFailed)
}

// IsReplayDivergence returns true if the error reports a replay divergence.
func IsReplayDivergence(err error) bool {
	return hasCode(err, ErrCodeReplayDiverged)
}

// IsInvalidConfig returns true if the error reports rejected run parameters.
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}

// IsInvariantViolation returns true if paranoid verification failed.
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrCodeInvariantViolated)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewRecordError wraps a recorder failure.
func NewRecordError(runID string, step int, what string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRecordFailed,
		Message: fmt.Sprintf("failed to record %s", what),
		RunID:   runID,
		Step:    step,
		Err:     err,
	}
}

// NewConfigError reports a rejected run parameter.
func NewConfigError(field string, value any, reason string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("%s=%v: %s", field, value, reason),
		Details: map[string]string{"field": field},
	}
}

// NewDivergenceError reports the first step whose replayed hash differs.
func NewDivergenceError(runID string, step int, expected, actual string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReplayDiverged,
		Message: "replayed state differs from recorded state",
		RunID:   runID,
		Step:    step,
		Details: map[string]string{
			"expected": expected,
			"actual":   actual,
		},
	}
}
