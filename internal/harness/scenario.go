package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hgsim/internal/engine"
	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
)

// Scenario defines one simulation run and what must hold at its end.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed seeds the PRNG. Ignored when Draws is set.
	Seed int64 `yaml:"seed,omitempty"`

	// Steps is the step budget.
	Steps int `yaml:"steps"`

	// PatternSize is the neighborhood bound. Zero means the default of 1.
	PatternSize int `yaml:"pattern_size,omitempty"`

	// RecencyWindow overrides the compaction protection window.
	RecencyWindow *int `yaml:"recency_window,omitempty"`

	// InitialSelfLoops overrides the number of self edges on the initial
	// node. Ignored when InitialEdges is set.
	InitialSelfLoops *int `yaml:"initial_self_loops,omitempty"`

	// InitialEdges replaces the default initial condition. Nodes created
	// this way carry no recency protection.
	InitialEdges [][]int `yaml:"initial_edges,omitempty"`

	// ToggleRemoveTarget is "pattern" (default) or "self_loop".
	ToggleRemoveTarget string `yaml:"toggle_remove_target,omitempty"`

	// Draws scripts the random source. Every applied step consumes one
	// float and every active-node pick one int.
	Draws *Draws `yaml:"draws,omitempty"`

	// Assertions validate the final graph and the recorded trace.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Draws is a scripted random sequence.
type Draws struct {
	Floats []float64 `yaml:"floats"`
	Ints   []int     `yaml:"ints"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_counts": compare counts of the final graph
	// - "rule_count": count recorded steps of one rule kind
	// - "label_sequence": compare labels of applied steps
	// - "invariants": verify graph invariants
	// - "status": compare the run's final status
	Type string `yaml:"type"`

	// Nodes, Edges and MaxDegree are the expected final counts (used by
	// final_counts). Unset fields are not checked.
	Nodes     *int `yaml:"nodes,omitempty"`
	Edges     *int `yaml:"edges,omitempty"`
	MaxDegree *int `yaml:"max_degree,omitempty"`

	// Rule is a rule kind such as "split" or "skipped" (used by rule_count).
	Rule string `yaml:"rule,omitempty"`

	// Count is the expected number of steps (used by rule_count).
	Count int `yaml:"count,omitempty"`

	// Labels is the expected label order (used by label_sequence).
	Labels []string `yaml:"labels,omitempty"`

	// Status is the expected run status (used by status).
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalCounts   = "final_counts"
	AssertRuleCount     = "rule_count"
	AssertLabelSequence = "label_sequence"
	AssertInvariants    = "invariants"
	AssertStatus        = "status"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Params returns the run parameters the scenario describes, with defaults
// filled in.
func (s *Scenario) Params() ir.RunParams {
	p := ir.RunParams{
		Seed:               s.Seed,
		Steps:              s.Steps,
		PatternSize:        s.PatternSize,
		RecencyWindow:      hypergraph.DefaultRecencyWindow,
		InitialSelfLoops:   engine.DefaultInitialSelfLoops,
		ToggleRemoveTarget: s.ToggleRemoveTarget,
	}
	if p.PatternSize == 0 {
		p.PatternSize = engine.DefaultPatternSize
	}
	if s.RecencyWindow != nil {
		p.RecencyWindow = *s.RecencyWindow
	}
	if s.InitialSelfLoops != nil {
		p.InitialSelfLoops = *s.InitialSelfLoops
	}
	if p.ToggleRemoveTarget == "" {
		p.ToggleRemoveTarget = string(engine.TargetPattern)
	}
	return p
}

// Scripted reports whether the scenario replaces the PRNG with fixed draws.
func (s *Scenario) Scripted() bool {
	return s.Draws != nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if err := engine.ValidateParams(s.Params()); err != nil {
		return err
	}

	for i, edge := range s.InitialEdges {
		if len(edge) < hypergraph.MinArity {
			return fmt.Errorf("initial_edges[%d]: arity %d is below %d", i, len(edge), hypergraph.MinArity)
		}
		for _, node := range edge {
			if node < 0 {
				return fmt.Errorf("initial_edges[%d]: negative node id %d", i, node)
			}
		}
	}

	if s.Draws != nil {
		for i, f := range s.Draws.Floats {
			if f < 0 || f >= 1 {
				return fmt.Errorf("draws.floats[%d]: %v is outside [0,1)", i, f)
			}
		}
		for i, n := range s.Draws.Ints {
			if n < 0 {
				return fmt.Errorf("draws.ints[%d]: negative value %d", i, n)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalCounts:
		if a.Nodes == nil && a.Edges == nil && a.MaxDegree == nil {
			return fmt.Errorf("assertions[%d]: final_counts needs at least one of nodes, edges, max_degree", index)
		}
	case AssertRuleCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for rule_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for rule_count", index)
		}
	case AssertLabelSequence:
		if a.Labels == nil {
			return fmt.Errorf("assertions[%d]: labels list is required for label_sequence", index)
		}
	case AssertInvariants:
	case AssertStatus:
		switch a.Status {
		case ir.RunStatusCompleted, ir.RunStatusExhausted, ir.RunStatusCancelled, ir.RunStatusFailed:
		default:
			return fmt.Errorf("assertions[%d]: unknown status %q", index, a.Status)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
