package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hgsim/internal/hypergraph"
	"github.com/roach88/hgsim/internal/ir"
	"github.com/roach88/hgsim/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Labels   []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Labels) > 0 {
		fmt.Fprintf(&buf, "\nApplied rules:\n")
		for i, label := range e.Labels {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, label)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Graph hypergraph.View
	RunID string
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalCounts:
			err = assertFinalCounts(result, assertion)
		case AssertRuleCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: rule_count requires database context", i)
			} else {
				err = assertRuleCount(actx, result, assertion)
			}
		case AssertLabelSequence:
			err = assertLabelSequence(result, assertion)
		case AssertInvariants:
			var g hypergraph.View
			if actx != nil {
				g = actx.Graph
			}
			err = assertInvariants(g, result)
		case AssertStatus:
			err = assertStatus(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertFinalCounts compares the final graph's counts. Unset expectations
// are skipped.
func assertFinalCounts(result *Result, assertion Assertion) error {
	var expected, actual []string
	check := func(name string, want *int, got int) {
		if want == nil {
			return
		}
		if *want != got {
			expected = append(expected, fmt.Sprintf("%s=%d", name, *want))
			actual = append(actual, fmt.Sprintf("%s=%d", name, got))
		}
	}
	check("nodes", assertion.Nodes, result.Final.Nodes)
	check("edges", assertion.Edges, result.Final.Edges)
	check("max_degree", assertion.MaxDegree, result.Final.MaxDegree)

	if len(expected) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalCounts,
		Expected: strings.Join(expected, ", "),
		Actual:   strings.Join(actual, ", "),
		Labels:   result.Labels(),
	}
}

// assertRuleCount checks the number of recorded steps of one rule kind,
// counted by the run log itself.
func assertRuleCount(actx *AssertionContext, result *Result, assertion Assertion) error {
	counts, err := actx.Store.RuleCounts(actx.Ctx, actx.RunID)
	if err != nil {
		return fmt.Errorf("rule_count: %w", err)
	}

	if got := counts[assertion.Rule]; got != assertion.Count {
		return &AssertionError{
			Type:     AssertRuleCount,
			Expected: fmt.Sprintf("%d steps of %s", assertion.Count, assertion.Rule),
			Actual:   fmt.Sprintf("%d steps", got),
			Labels:   result.Labels(),
		}
	}
	return nil
}

// assertLabelSequence compares the labels of applied steps exactly.
func assertLabelSequence(result *Result, assertion Assertion) error {
	got := result.Labels()
	if len(got) == len(assertion.Labels) {
		same := true
		for i := range got {
			if got[i] != assertion.Labels[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLabelSequence,
		Expected: fmt.Sprintf("%v", assertion.Labels),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertInvariants verifies the final graph and checks every recorded step
// for internal consistency: node count matches the positive degrees, the
// active list is exactly those ids, and max degree belongs to its node.
func assertInvariants(g hypergraph.View, result *Result) error {
	if g != nil {
		if err := hypergraph.Verify(g); err != nil {
			return &AssertionError{
				Type:     AssertInvariants,
				Expected: "final graph satisfies all invariants",
				Actual:   err.Error(),
				Labels:   result.Labels(),
			}
		}
	}

	for _, rec := range result.Trace {
		if msg := checkRecord(rec); msg != "" {
			return &AssertionError{
				Type:     AssertInvariants,
				Expected: fmt.Sprintf("step %d record is consistent", rec.Step),
				Actual:   msg,
				Labels:   result.Labels(),
			}
		}
	}
	return nil
}

func checkRecord(rec ir.StepRecord) string {
	var active []int
	maxDegree, maxNode := 0, 0
	for node, d := range rec.Degrees {
		if d < 0 {
			return fmt.Sprintf("node %d has negative degree %d", node, d)
		}
		if d > 0 {
			active = append(active, node)
		}
		if d > maxDegree {
			maxDegree, maxNode = d, node
		}
	}

	if rec.NodeCount != len(active) {
		return fmt.Sprintf("node_count %d but %d positive degrees", rec.NodeCount, len(active))
	}
	if len(rec.ActiveNodes) != len(active) {
		return fmt.Sprintf("active_nodes %v but positive degrees at %v", rec.ActiveNodes, active)
	}
	for i := range active {
		if rec.ActiveNodes[i] != active[i] {
			return fmt.Sprintf("active_nodes %v but positive degrees at %v", rec.ActiveNodes, active)
		}
	}
	if rec.MaxDegree != maxDegree || rec.MaxDegreeNode != maxNode {
		return fmt.Sprintf("max degree %d (node %d) but table says %d (node %d)",
			rec.MaxDegree, rec.MaxDegreeNode, maxDegree, maxNode)
	}
	for i, e := range rec.Added {
		if len(e) < hypergraph.MinArity {
			return fmt.Sprintf("added edge %d has arity %d", i, len(e))
		}
	}
	return ""
}

func assertStatus(result *Result, assertion Assertion) error {
	if result.Status != assertion.Status {
		return &AssertionError{
			Type:     AssertStatus,
			Expected: assertion.Status,
			Actual:   result.Status,
			Labels:   result.Labels(),
		}
	}
	return nil
}
