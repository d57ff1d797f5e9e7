package hypergraph

import "fmt"

// InvariantError describes the first invariant a View was found to violate.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("hypergraph invariant %s violated: %s", e.Invariant, e.Detail)
}

// Verify recounts degrees from the edge set and checks the structural
// invariants. It is used by tests and by the engine's paranoid mode.
func Verify(v View) error {
	degrees := v.Degrees()
	counted := make([]int, len(degrees))
	maxID := v.MaxNodeID()

	var err error
	v.EachEdge(func(i int, e Edge) bool {
		if len(e) < MinArity {
			err = &InvariantError{Invariant: "arity", Detail: fmt.Sprintf("edge %d has arity %d", i, len(e))}
			return false
		}
		for _, node := range e {
			if node < 0 || node >= len(degrees) {
				err = &InvariantError{Invariant: "coverage", Detail: fmt.Sprintf("edge %d references node %d outside table of %d", i, node, len(degrees))}
				return false
			}
			if node > maxID {
				err = &InvariantError{Invariant: "max_node_id", Detail: fmt.Sprintf("edge %d references node %d above max id %d", i, node, maxID)}
				return false
			}
			counted[node]++
		}
		return true
	})
	if err != nil {
		return err
	}

	for node, d := range degrees {
		if d != counted[node] {
			return &InvariantError{Invariant: "degree", Detail: fmt.Sprintf("node %d has degree %d but %d occurrences", node, d, counted[node])}
		}
	}
	return nil
}
