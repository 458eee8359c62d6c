package queryir

import (
	"github.com/roach88/livestore/internal/value"
)

// Statement is a sealed interface over executable statements.
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Predicate is a sealed interface over filter conditions.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Valid reports whether op is one of the known operators.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by col ascending.
func Asc(col string) Order { return Order{Column: col} }

// Desc orders by col descending.
func Desc(col string) Order { return Order{Column: col, Desc: true} }

// Select reads rows.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// Empty Columns selects every column. A nil Limit/Offset is omitted.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	Limit   *int
	Offset  *int
}

func (Select) statementNode() {}

// Exists checks whether any row matches Filter.
type Exists struct {
	From   string
	Filter Predicate
}

func (Exists) statementNode() {}

// Insert writes one row.
type Insert struct {
	Into   string
	Values value.Row
}

func (Insert) statementNode() {}

// Update applies Set to every row matching Filter.
type Update struct {
	Table  string
	Set    value.Row
	Filter Predicate
}

func (Update) statementNode() {}

// Delete removes every row matching Filter.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) statementNode() {}

// Compare is <field> <op> <value>.
type Compare struct {
	Field string
	Op    Op
	Value value.Value
}

func (Compare) predicateNode() {}

// In is <field> IN (<values>). An empty Values list matches nothing.
type In struct {
	Field  string
	Values []value.Value
}

func (In) predicateNode() {}

// IsNull is <field> IS NULL, or IS NOT NULL when Negate is set.
type IsNull struct {
	Field  string
	Negate bool
}

func (IsNull) predicateNode() {}

// And is a conjunction. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. Empty means always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates Predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// True is the identity element for AndOf.
var True Predicate = And{}

// IsTrue reports whether p filters nothing out (nil or an empty And).
func IsTrue(p Predicate) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case And:
		return len(pred.Predicates) == 0
	case *And:
		return pred == nil || len(pred.Predicates) == 0
	}
	return false
}

// AndOf combines predicates into one flattened conjunction.
// Nil and empty conjunctions are dropped; a single survivor is returned as is.
func AndOf(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch pred := p.(type) {
		case nil:
		case And:
			out = append(out, pred.Predicates...)
		case *And:
			if pred != nil {
				out = append(out, pred.Predicates...)
			}
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return True
	case 1:
		return out[0]
	}
	return And{Predicates: out}
}

// OrOf combines predicates into one flattened disjunction. Nil entries are dropped.
func OrOf(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch pred := p.(type) {
		case nil:
		case Or:
			out = append(out, pred.Predicates...)
		case *Or:
			if pred != nil {
				out = append(out, pred.Predicates...)
			}
		default:
			out = append(out, p)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return Or{Predicates: out}
}

// NotOf negates p, collapsing double negation.
func NotOf(p Predicate) Predicate {
	switch pred := p.(type) {
	case Not:
		return pred.Predicate
	case *Not:
		return pred.Predicate
	}
	return Not{Predicate: p}
}

// Table returns the table a statement touches.
func Table(s Statement) string {
	switch st := s.(type) {
	case Select:
		return st.From
	case *Select:
		return st.From
	case Exists:
		return st.From
	case *Exists:
		return st.From
	case Insert:
		return st.Into
	case *Insert:
		return st.Into
	case Update:
		return st.Table
	case *Update:
		return st.Table
	case Delete:
		return st.From
	case *Delete:
		return st.From
	}
	return ""
}

// Fields returns the distinct column names a predicate references, in
// first-seen order.
func Fields(p Predicate) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Predicate)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Compare:
			add(pred.Field)
		case *Compare:
			add(pred.Field)
		case In:
			add(pred.Field)
		case *In:
			add(pred.Field)
		case IsNull:
			add(pred.Field)
		case *IsNull:
			add(pred.Field)
		case And:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case *And:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case Or:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case *Or:
			for _, c := range pred.Predicates {
				walk(c)
			}
		case Not:
			walk(pred.Predicate)
		case *Not:
			walk(pred.Predicate)
		}
	}
	walk(p)
	return out
}
