// Package column provides typed column handles. A Column[T] knows its name,
// whether it admits NULL, and how to move T between Go, cells and
// identifier segments. Predicates built from a Column[T] only accept T, so
// comparing an INTEGER column with a string is a compile error.
package column

import (
	"fmt"

	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/value"
)

// Kind is the primitive storage class of a column.
type Kind int

const (
	KindText Kind = iota + 1
	KindInteger
	KindBool
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "int"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses the configuration spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "text", "string":
		return KindText, nil
	case "int", "integer":
		return KindInteger, nil
	case "bool", "boolean":
		return KindBool, nil
	}
	return 0, fmt.Errorf("unknown column kind %q", s)
}

// Wildcard is the pattern placeholder for an argument of this kind:
// "#" for integer-like kinds, "*" otherwise.
func (k Kind) Wildcard() string {
	if k == KindInteger {
		return "#"
	}
	return "*"
}

// Arg is the untyped face of a column, used where the element type is
// not statically known: route segments, configuration, decoders.
type Arg interface {
	Name() string
	Kind() Kind
	IsNullable() bool

	// ParseSegment converts an identifier segment into the column's Go
	// value, boxed.
	ParseSegment(s string) (any, error)

	// FormatSegment renders a Go value of the column's type as a segment.
	FormatSegment(v any) (string, error)

	// Cell converts a Go value of the column's type into a cell.
	Cell(v any) (value.Value, error)
}

// Column is a typed column handle.
type Column[T any] struct {
	name     string
	nullable bool
	codec    Codec[T]
}

var (
	_ Arg = Column[int64]{}
	_ Arg = Column[string]{}
	_ Arg = Column[bool]{}
)

// New creates a non-nullable column with an explicit codec.
func New[T any](name string, codec Codec[T]) Column[T] {
	return Column[T]{name: name, codec: codec}
}

// Int64 creates a non-nullable INTEGER column.
func Int64(name string) Column[int64] { return New[int64](name, IntCodec{}) }

// Text creates a non-nullable TEXT column.
func Text(name string) Column[string] { return New[string](name, TextCodec{}) }

// Bool creates a non-nullable boolean column.
func Bool(name string) Column[bool] { return New[bool](name, BoolCodec{}) }

// Nullable returns a copy of c that admits NULL.
func (c Column[T]) Nullable() Column[T] {
	c.nullable = true
	return c
}

// Name returns the column name.
func (c Column[T]) Name() string { return c.name }

// Kind returns the storage class.
func (c Column[T]) Kind() Kind { return c.codec.Kind() }

// IsNullable reports whether the column admits NULL.
func (c Column[T]) IsNullable() bool { return c.nullable }

// ParseSegment implements Arg.
func (c Column[T]) ParseSegment(s string) (any, error) {
	v, err := c.codec.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", c.name, err)
	}
	return v, nil
}

// FormatSegment implements Arg.
func (c Column[T]) FormatSegment(v any) (string, error) {
	tv, ok := v.(T)
	if !ok {
		return "", fmt.Errorf("column %q: expected %T, got %T", c.name, *new(T), v)
	}
	return c.codec.Format(tv), nil
}

// Cell implements Arg.
func (c Column[T]) Cell(v any) (value.Value, error) {
	if v == nil {
		if !c.nullable {
			return nil, fmt.Errorf("column %q is not nullable", c.name)
		}
		return value.Null{}, nil
	}
	tv, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("column %q: expected %T, got %T", c.name, *new(T), v)
	}
	return c.codec.Encode(tv), nil
}

// Decode reads the column from a row. NULL yields the zero value and
// false; an absent column is an error.
func (c Column[T]) Decode(r value.Row) (T, bool, error) {
	var zero T
	cell, ok := r[c.name]
	if !ok {
		return zero, false, fmt.Errorf("column %q missing from row", c.name)
	}
	if value.IsNull(cell) {
		if !c.nullable {
			return zero, false, fmt.Errorf("column %q: unexpected NULL", c.name)
		}
		return zero, false, nil
	}
	v, err := c.codec.Decode(cell)
	if err != nil {
		return zero, false, fmt.Errorf("column %q: %w", c.name, err)
	}
	return v, true, nil
}

// Get is Decode for callers that treat NULL as the zero value.
func (c Column[T]) Get(r value.Row) (T, error) {
	v, _, err := c.Decode(r)
	return v, err
}

func (c Column[T]) compare(op queryir.Op, v T) queryir.Predicate {
	return queryir.Compare{Field: c.name, Op: op, Value: c.codec.Encode(v)}
}

// Eq is column = v.
func (c Column[T]) Eq(v T) queryir.Predicate { return c.compare(queryir.OpEq, v) }

// Ne is column <> v.
func (c Column[T]) Ne(v T) queryir.Predicate { return c.compare(queryir.OpNe, v) }

// Lt is column < v.
func (c Column[T]) Lt(v T) queryir.Predicate { return c.compare(queryir.OpLt, v) }

// Le is column <= v.
func (c Column[T]) Le(v T) queryir.Predicate { return c.compare(queryir.OpLe, v) }

// Gt is column > v.
func (c Column[T]) Gt(v T) queryir.Predicate { return c.compare(queryir.OpGt, v) }

// Ge is column >= v.
func (c Column[T]) Ge(v T) queryir.Predicate { return c.compare(queryir.OpGe, v) }

// In is column IN (vs...).
func (c Column[T]) In(vs ...T) queryir.Predicate {
	cells := make([]value.Value, len(vs))
	for i, v := range vs {
		cells[i] = c.codec.Encode(v)
	}
	return queryir.In{Field: c.name, Values: cells}
}

// IsNull is column IS NULL.
func (c Column[T]) IsNull() queryir.Predicate { return queryir.IsNull{Field: c.name} }

// IsNotNull is column IS NOT NULL.
func (c Column[T]) IsNotNull() queryir.Predicate {
	return queryir.IsNull{Field: c.name, Negate: true}
}

// Asc orders by this column ascending.
func (c Column[T]) Asc() queryir.Order { return queryir.Asc(c.name) }

// Desc orders by this column descending.
func (c Column[T]) Desc() queryir.Order { return queryir.Desc(c.name) }

// Set returns the assignment column = v.
func (c Column[T]) Set(v T) Assignment {
	return Assignment{Column: c.name, Value: c.codec.Encode(v)}
}

// SetNull returns the assignment column = NULL. Fails for non-nullable columns.
func (c Column[T]) SetNull() (Assignment, error) {
	if !c.nullable {
		return Assignment{}, fmt.Errorf("column %q is not nullable", c.name)
	}
	return Assignment{Column: c.name, Value: value.Null{}}, nil
}

// Assignment is one column/value pair of a write.
type Assignment struct {
	Column string
	Value  value.Value
}

// Row collects assignments into a row. Later assignments win.
func Row(as ...Assignment) value.Row {
	r := make(value.Row, len(as))
	for _, a := range as {
		r[a.Column] = a.Value
	}
	return r
}
