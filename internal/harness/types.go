package harness

import (
	"github.com/roach88/hgsim/internal/ir"
)

// FinalState summarises the graph a scenario ended with.
type FinalState struct {
	Nodes         int   `json:"nodes"`
	Edges         int   `json:"edges"`
	MaxDegree     int   `json:"max_degree"`
	MaxDegreeNode int   `json:"max_degree_node"`
	Degrees       []int `json:"degrees"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	StepsRun int    `json:"steps_run"`

	// Trace contains the recorded steps in order, as read back from the
	// run log.
	Trace []ir.StepRecord `json:"trace"`

	Final      FinalState     `json:"final"`
	RuleCounts map[string]int `json:"rule_counts"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []ir.StepRecord{},
		RuleCounts: make(map[string]int),
		Errors:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Labels returns the status labels of the applied (non-skipped) steps.
func (r *Result) Labels() []string {
	labels := make([]string, 0, len(r.Trace))
	for _, rec := range r.Trace {
		if rec.Skipped {
			continue
		}
		labels = append(labels, rec.Label)
	}
	return labels
}
