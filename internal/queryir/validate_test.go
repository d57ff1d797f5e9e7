package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"bare select", Select{From: SourceSteps}},
		{"pointer select", &Select{From: SourceSteps, Filter: &Equals{Field: "run_id", Value: "r1"}}},
		{"conjunction", Select{
			From: SourceSteps,
			Filter: And{Predicates: []Predicate{
				Equals{Field: "run_id", Value: "r1"},
				Equals{Field: "skipped", Value: false},
				Equals{Field: "step", Value: int64(3)},
				Between{Field: "step", Lo: 1, Hi: 10},
			}},
			Limit: 5,
		}},
		{"nested and", Select{
			From:   SourceSteps,
			Filter: &And{Predicates: []Predicate{And{Predicates: []Predicate{Equals{Field: "label", Value: "Split"}}}}},
		}},
		{"single point range", Select{From: SourceSteps, Filter: Between{Field: "step", Lo: 4, Hi: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.query))
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{"nil query", nil, "nil query"},
		{"nil pointer", (*Select)(nil), "nil query"},
		{"unknown source", Select{From: "runs; DROP TABLE steps"}, "unknown source"},
		{"negative limit", Select{From: SourceSteps, Limit: -1}, "limit"},
		{"unknown field", Select{From: SourceSteps, Filter: Equals{Field: "record", Value: "x"}}, `unknown field "record"`},
		{"wrong kind", Select{From: SourceSteps, Filter: Equals{Field: "step", Value: "3"}}, "is int, got string"},
		{"unsupported value", Select{From: SourceSteps, Filter: Equals{Field: "step", Value: 1.5}}, "unsupported value type float64"},
		{"range on string", Select{From: SourceSteps, Filter: Between{Field: "rule", Lo: 1, Hi: 2}}, "range needs int"},
		{"empty range", Select{From: SourceSteps, Filter: Between{Field: "step", Lo: 9, Hi: 2}}, "empty range 9..2"},
		{"nil inside and", Select{From: SourceSteps, Filter: And{Predicates: []Predicate{nil}}}, "nil predicate"},
		{"nil equals pointer", Select{From: SourceSteps, Filter: (*Equals)(nil)}, "nil predicate"},
		{"nil between pointer", Select{From: SourceSteps, Filter: (*Between)(nil)}, "nil predicate"},
		{"nil and pointer", Select{From: SourceSteps, Filter: (*And)(nil)}, "nil predicate"},
		{"nil pointer inside and", Select{From: SourceSteps, Filter: And{Predicates: []Predicate{(*Equals)(nil)}}}, "nil predicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := Validate(Select{
		From: SourceSteps,
		Filter: And{Predicates: []Predicate{
			Equals{Field: "nope", Value: "x"},
			Equals{Field: "skipped", Value: 1},
		}},
		Limit: -2,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}
