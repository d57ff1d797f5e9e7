package queryir

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks that a query only names known sources and fields and
// that every literal matches its field's kind.
//
// Returns nil or a *ValidationError. Validate is a pure function.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	fields, ok := Fields[sel.From]
	if !ok {
		v.addProblem("unknown source %q", sel.From)
		return
	}
	if sel.Limit < 0 {
		v.addProblem("limit must be non-negative, got %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(fields, sel.Filter)
	}
}

func (v *validator) validatePredicate(fields map[string]FieldKind, p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Equals:
		v.validateEquals(fields, pred)
	case Between:
		v.validateBetween(fields, pred)
	case And:
		for _, inner := range pred.Predicates {
			v.validatePredicate(fields, inner)
		}
	case *Equals:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		v.validateEquals(fields, *pred)
	case *Between:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		v.validateBetween(fields, *pred)
	case *And:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		v.validatePredicate(fields, *pred)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(fields map[string]FieldKind, eq Equals) {
	kind, ok := fields[eq.Field]
	if !ok {
		v.addProblem("unknown field %q", eq.Field)
		return
	}
	got, ok := valueKind(eq.Value)
	if !ok {
		v.addProblem("field %q: unsupported value type %T", eq.Field, eq.Value)
		return
	}
	if got != kind {
		v.addProblem("field %q is %s, got %s value", eq.Field, kind, got)
	}
}

func (v *validator) validateBetween(fields map[string]FieldKind, b Between) {
	kind, ok := fields[b.Field]
	if !ok {
		v.addProblem("unknown field %q", b.Field)
		return
	}
	if kind != KindInt {
		v.addProblem("field %q is %s, range needs int", b.Field, kind)
		return
	}
	if b.Lo > b.Hi {
		v.addProblem("field %q: empty range %d..%d", b.Field, b.Lo, b.Hi)
	}
}

func valueKind(value any) (FieldKind, bool) {
	switch value.(type) {
	case string:
		return KindString, true
	case int, int64:
		return KindInt, true
	case bool:
		return KindBool, true
	default:
		return 0, false
	}
}
