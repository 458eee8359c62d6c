package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/value"
)

var (
	id       = Int64("id")
	title    = Text("title")
	finished = Bool("finished")
	note     = Text("note").Nullable()
)

func TestColumn_Predicates(t *testing.T) {
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpEq, Value: value.Int(1)}, id.Eq(1))
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpNe, Value: value.Int(1)}, id.Ne(1))
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpLt, Value: value.Int(1)}, id.Lt(1))
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpLe, Value: value.Int(1)}, id.Le(1))
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpGt, Value: value.Int(1)}, id.Gt(1))
	assert.Equal(t, queryir.Compare{Field: "id", Op: queryir.OpGe, Value: value.Int(1)}, id.Ge(1))
	assert.Equal(t, queryir.Compare{Field: "title", Op: queryir.OpEq, Value: value.Text("x")}, title.Eq("x"))
	assert.Equal(t, queryir.IsNull{Field: "note"}, note.IsNull())
	assert.Equal(t, queryir.IsNull{Field: "note", Negate: true}, note.IsNotNull())
	assert.Equal(t, queryir.In{Field: "id", Values: []value.Value{value.Int(1), value.Int(2)}}, id.In(1, 2))
}

func TestColumn_Nullable(t *testing.T) {
	assert.False(t, title.IsNullable())
	assert.True(t, note.IsNullable())
	assert.Equal(t, "note", note.Name())

	_, err := title.SetNull()
	assert.Error(t, err)
	a, err := note.SetNull()
	require.NoError(t, err)
	assert.Equal(t, Assignment{Column: "note", Value: value.Null{}}, a)
}

func TestColumn_Wildcards(t *testing.T) {
	assert.Equal(t, "#", id.Kind().Wildcard())
	assert.Equal(t, "*", title.Kind().Wildcard())
	assert.Equal(t, "*", finished.Kind().Wildcard())
}

func TestColumn_SegmentRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		col Arg
		v   any
	}{
		{id, int64(42)},
		{id, int64(-7)},
		{title, "buy milk"},
		{title, ""},
		{finished, true},
	} {
		s, err := tc.col.FormatSegment(tc.v)
		require.NoError(t, err)
		back, err := tc.col.ParseSegment(s)
		require.NoError(t, err)
		assert.Equal(t, tc.v, back)
	}
}

func TestColumn_FormatSegmentTypeMismatch(t *testing.T) {
	_, err := id.FormatSegment("42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected int64")
}

func TestColumn_Decode(t *testing.T) {
	row := value.Row{"id": value.Int(3), "finished": value.Int(1), "note": value.Null{}, "title": value.Text("a")}

	n, err := id.Get(row)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	b, err := finished.Get(row)
	require.NoError(t, err)
	assert.True(t, b)

	s, ok, err := note.Decode(row)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)

	_, err = Int64("missing").Get(row)
	assert.Error(t, err)

	_, _, err = Text("id").Nullable().Decode(value.Row{"id": value.Null{}})
	assert.NoError(t, err)
	_, _, err = Text("id").Decode(value.Row{"id": value.Null{}})
	assert.Error(t, err)
}

func TestRow_LaterAssignmentsWin(t *testing.T) {
	r := Row(title.Set("a"), finished.Set(false), title.Set("b"))
	assert.Equal(t, value.Row{"title": value.Text("b"), "finished": value.Bool(false)}, r)
}

func TestDynamic(t *testing.T) {
	a, err := Dynamic("version", KindInteger, false)
	require.NoError(t, err)
	assert.Equal(t, KindInteger, a.Kind())

	cell, err := Coerce(a, "12")
	require.NoError(t, err)
	assert.Equal(t, value.Int(12), cell)

	cell, err = Coerce(a, float64(3))
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), cell)

	_, err = Coerce(a, 1.5)
	assert.Error(t, err)

	_, err = Coerce(a, nil)
	assert.Error(t, err, "non-nullable column rejects nil")

	b, err := Dynamic("finished", KindBool, true)
	require.NoError(t, err)
	cell, err = Coerce(b, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, cell)

	_, err = Dynamic("x", Kind(99), false)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("integer")
	require.NoError(t, err)
	assert.Equal(t, KindInteger, k)
	_, err = ParseKind("real")
	assert.Error(t, err)
}
