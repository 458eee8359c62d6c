package queryir

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/livestore/internal/value"
)

// identifierPattern matches names safe to splice into SQL unquoted.
// Table and column names are never bound as parameters, so they must be
// checked before compilation.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is a plain SQL identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks that a statement only references plain identifiers and
// known operators, and that limits are non-negative.
//
// Validate is a pure function with no side effects. All problems are
// collected and returned joined.
func Validate(s Statement) error {
	v := &validator{}
	v.statement(s)
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !ValidIdentifier(name) {
		v.addf("invalid %s name %q", kind, name)
	}
}

func (v *validator) statement(s Statement) {
	switch st := s.(type) {
	case nil:
		v.addf("nil statement")
	case Select:
		v.selectStmt(st)
	case *Select:
		v.selectStmt(*st)
	case Exists:
		v.ident("table", st.From)
		v.predicate(st.Filter)
	case *Exists:
		v.ident("table", st.From)
		v.predicate(st.Filter)
	case Insert:
		v.ident("table", st.Into)
		v.row(st.Values)
	case *Insert:
		v.ident("table", st.Into)
		v.row(st.Values)
	case Update:
		v.ident("table", st.Table)
		v.row(st.Set)
		v.predicate(st.Filter)
	case *Update:
		v.ident("table", st.Table)
		v.row(st.Set)
		v.predicate(st.Filter)
	case Delete:
		v.ident("table", st.From)
		v.predicate(st.Filter)
	case *Delete:
		v.ident("table", st.From)
		v.predicate(st.Filter)
	default:
		v.addf("unsupported statement type %T", s)
	}
}

func (v *validator) selectStmt(s Select) {
	v.ident("table", s.From)
	for _, c := range s.Columns {
		v.ident("column", c)
	}
	for _, o := range s.OrderBy {
		v.ident("order column", o.Column)
	}
	if s.Limit != nil && *s.Limit < 0 {
		v.addf("negative limit %d", *s.Limit)
	}
	if s.Offset != nil && *s.Offset < 0 {
		v.addf("negative offset %d", *s.Offset)
	}
	v.predicate(s.Filter)
}

func (v *validator) row(r value.Row) {
	for col := range r {
		v.ident("column", col)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Compare:
		v.compare(pred)
	case *Compare:
		v.compare(*pred)
	case In:
		v.ident("column", pred.Field)
	case *In:
		v.ident("column", pred.Field)
	case IsNull:
		v.ident("column", pred.Field)
	case *IsNull:
		v.ident("column", pred.Field)
	case And:
		v.each(pred.Predicates)
	case *And:
		v.each(pred.Predicates)
	case Or:
		v.each(pred.Predicates)
	case *Or:
		v.each(pred.Predicates)
	case Not:
		v.notPredicate(pred.Predicate)
	case *Not:
		v.notPredicate(pred.Predicate)
	default:
		v.addf("unsupported predicate type %T", p)
	}
}

func (v *validator) compare(c Compare) {
	v.ident("column", c.Field)
	if !c.Op.Valid() {
		v.addf("invalid operator %q on column %q", c.Op, c.Field)
	}
}

func (v *validator) notPredicate(p Predicate) {
	if p == nil {
		v.addf("NOT requires an operand")
		return
	}
	v.predicate(p)
}

func (v *validator) each(preds []Predicate) {
	for _, p := range preds {
		if p == nil {
			v.addf("nil predicate inside composition")
			continue
		}
		v.predicate(p)
	}
}
