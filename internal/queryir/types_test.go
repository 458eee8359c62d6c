package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/value"
)

func eq(field string, v any) Predicate {
	return Compare{Field: field, Op: OpEq, Value: value.MustOf(v)}
}

func TestAndOf_IdentityElement(t *testing.T) {
	p := eq("id", 1)

	assert.Equal(t, p, AndOf(True, p))
	assert.Equal(t, p, AndOf(p, True))
	assert.Equal(t, p, AndOf(nil, p))
	assert.True(t, IsTrue(AndOf()))
	assert.True(t, IsTrue(AndOf(True, True)))
}

func TestAndOf_Associative(t *testing.T) {
	a, b, c := eq("a", 1), eq("b", 2), eq("c", 3)

	left := AndOf(AndOf(a, b), c)
	right := AndOf(a, AndOf(b, c))

	assert.Equal(t, left, right)
	assert.Equal(t, And{Predicates: []Predicate{a, b, c}}, left)
}

func TestOrOf_Flattens(t *testing.T) {
	a, b, c := eq("a", 1), eq("b", 2), eq("c", 3)
	assert.Equal(t, Or{Predicates: []Predicate{a, b, c}}, OrOf(OrOf(a, b), c))
	assert.Equal(t, a, OrOf(a))
}

func TestNotOf_CollapsesDoubleNegation(t *testing.T) {
	a := eq("a", 1)
	assert.Equal(t, Not{Predicate: a}, NotOf(a))
	assert.Equal(t, a, NotOf(NotOf(a)))
}

func TestTable(t *testing.T) {
	assert.Equal(t, "task", Table(Select{From: "task"}))
	assert.Equal(t, "task", Table(&Insert{Into: "task"}))
	assert.Equal(t, "task", Table(Update{Table: "task"}))
	assert.Equal(t, "task", Table(Delete{From: "task"}))
	assert.Equal(t, "task", Table(Exists{From: "task"}))
}

func TestFields(t *testing.T) {
	p := AndOf(eq("id", 1), OrOf(IsNull{Field: "note"}, NotOf(eq("id", 2))), In{Field: "version"})
	assert.Equal(t, []string{"id", "note", "version"}, Fields(p))
}

func TestValidate_Accepts(t *testing.T) {
	limit := 10
	err := Validate(Select{
		From:    "task",
		Columns: []string{"id", "title"},
		Filter:  AndOf(eq("finished", true), Compare{Field: "version", Op: OpGe, Value: value.Int(2)}),
		OrderBy: []Order{Desc("id")},
		Limit:   &limit,
	})
	require.NoError(t, err)
}

func TestValidate_RejectsUnsafeNames(t *testing.T) {
	err := Validate(Update{
		Table:  "task; DROP TABLE task",
		Set:    value.Row{"title--": value.Text("x")},
		Filter: Compare{Field: "id", Op: Op("LIKE"), Value: value.Int(1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
	assert.Contains(t, err.Error(), "invalid column name")
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestValidate_NegativeLimit(t *testing.T) {
	n := -1
	err := Validate(&Select{From: "task", Offset: &n})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative offset")
}

func TestValidate_NilNodes(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(Delete{From: "task", Filter: Not{}}))
	assert.Error(t, Validate(Delete{From: "task", Filter: And{Predicates: []Predicate{nil}}}))
}
