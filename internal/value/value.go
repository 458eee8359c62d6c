package value

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"
)

// Value is a sealed interface representing one cell.
// Only Null, Text, Int and Bool implement it.
type Value interface {
	cell() // Sealed - only these types implement it
}

// Null represents SQL NULL.
type Null struct{}

func (Null) cell() {}

// Text represents a TEXT cell.
type Text string

func (Text) cell() {}

// Int represents an INTEGER cell. Always int64.
type Int int64

func (Int) cell() {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) cell() {}

// IsNull reports whether v is NULL (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Of converts a native Go value into a Value.
// Accepts nil, Value, string, bool and the integer types.
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 %d overflows int64", val)
		}
		return Int(val), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not supported as cell values: %v", val)
	default:
		return nil, fmt.Errorf("unsupported cell type: %T", v)
	}
}

// MustOf is Of for literals known to be valid. Panics on error.
func MustOf(v any) Value {
	out, err := Of(v)
	if err != nil {
		panic(err)
	}
	return out
}

// FromDriver converts a value scanned from database/sql into a Value.
// Integral floats are accepted because some drivers widen INTEGER
// affinity columns; anything with a fraction is rejected.
func FromDriver(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case int64:
		return Int(val), nil
	case string:
		return Text(val), nil
	case []byte:
		return Text(string(val)), nil
	case bool:
		return Bool(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-integral REAL %v is not supported", val)
		}
		return Int(int64(val)), nil
	case time.Time:
		return Text(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported driver value: %T", v)
	}
}

// ToDriver converts a Value into a database/sql parameter.
func ToDriver(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case Text:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// String renders v the way it appears in an identifier segment.
// NULL renders as the empty string.
func String(v Value) string {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return ""
	}
}

// Equal reports whether two values are identical, treating Bool and its
// Int 0/1 storage form as equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case Bool:
		if y, ok := b.(Int); ok {
			return (y != 0) == bool(x)
		}
	case Int:
		if y, ok := b.(Bool); ok {
			return (x != 0) == bool(y)
		}
	}
	return a == b
}

// Row is one result row or one set of column assignments.
// Use SortedKeys for deterministic iteration.
type Row map[string]Value

// Get returns the value of col, Null{} when absent.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok && v != nil {
		return v
	}
	return Null{}
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which orders supplementary characters differently.
func (r Row) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
