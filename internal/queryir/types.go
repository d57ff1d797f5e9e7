package queryir

// Query represents an abstract query over the run log.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition in a Select.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal value
//   - Between: lo <= field <= hi on an integer field
//   - And: all predicates must be true
//
// There is no OR. A caller wanting two rules issues two queries.
type Predicate interface {
	predicateNode()
}

// Source names for Select.From.
const (
	SourceSteps = "steps"
)

// Select reads rows of one source, filtered and in the source's stable
// order.
//
// Semantics:
//
//	SELECT <record> FROM <from> WHERE <filter> ORDER BY <key> LIMIT <limit>
//
// Example:
//
//	Select{
//	  From: SourceSteps,
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: runID},
//	    Equals{Field: "rule", Value: "split"},
//	    Between{Field: "step", Lo: 10, Hi: 20},
//	  }},
//	}
//
// Limit of zero means no limit.
type Select struct {
	From   string
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Equals compares a field to a literal value.
//
// Value must be a string, int, int64, or bool matching the field's type.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Between bounds an integer field, both ends inclusive.
type Between struct {
	Field string
	Lo    int
	Hi    int
}

func (Between) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FieldKind is the value type of a queryable field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindBool
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Fields lists the queryable fields of each source and their kinds.
var Fields = map[string]map[string]FieldKind{
	SourceSteps: {
		"run_id":     KindString,
		"step":       KindInt,
		"rule":       KindString,
		"label":      KindString,
		"skipped":    KindBool,
		"state_hash": KindString,
	},
}
