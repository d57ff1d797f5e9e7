package testutil

// FixedRunIDGenerator returns the same run id every time.
//
// Simulation runs recorded with a fixed id produce byte-identical step logs,
// which is what golden comparison needs. If id is empty, Generate returns
// "test-run-default".
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
