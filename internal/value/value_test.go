package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf_NativeTypes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "milk", Text("milk")},
		{"int", 7, Int(7)},
		{"int32", int32(-3), Int(-3)},
		{"bool", true, Bool(true)},
		{"value passthrough", Text("x"), Text("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOf_RejectsFloats(t *testing.T) {
	_, err := Of(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")
}

func TestFromDriver(t *testing.T) {
	v, err := FromDriver([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, Text("abc"), v)

	v, err = FromDriver(float64(3))
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	_, err = FromDriver(3.25)
	assert.Error(t, err)

	v, err = FromDriver(nil)
	require.NoError(t, err)
	assert.True(t, IsNull(v))
}

func TestEqual_BoolStoredAsInt(t *testing.T) {
	assert.True(t, Equal(Bool(true), Int(1)))
	assert.True(t, Equal(Int(0), Bool(false)))
	assert.False(t, Equal(Bool(true), Int(0)))
	assert.True(t, Equal(Null{}, nil))
	assert.False(t, Equal(Null{}, Int(0)))
}

func TestRow_SortedKeysUTF16(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before U+FF61.
	r := Row{"｡": Int(1), "\U0001F600": Int(2), "a": Int(3)}
	assert.Equal(t, []string{"a", "\U0001F600", "｡"}, r.SortedKeys())
}

func TestMarshalCanonical_Row(t *testing.T) {
	r := Row{"title": Text("Buy <milk>"), "id": Int(1), "finished": Bool(false), "note": Null{}}
	got, err := MarshalCanonical(r)
	require.NoError(t, err)
	assert.Equal(t, `{"finished":false,"id":1,"note":null,"title":"Buy <milk>"}`, string(got))
}

func TestMarshalCanonical_NFCAndSeparators(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	got, err := MarshalCanonical("e\u0301\u2028")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\u2028\"", string(got))
}

func TestMarshalCanonical_NestedAny(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"rows":  []Row{{"id": Int(2)}},
		"count": int64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"count":1,"rows":[{"id":2}]}`, string(got))
}

func TestMarshalCanonical_RejectsFloat(t *testing.T) {
	_, err := MarshalCanonical([]any{1.5})
	assert.Error(t, err)
}
