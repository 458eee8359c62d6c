package column

import (
	"fmt"

	"github.com/roach88/livestore/internal/value"
)

// Dynamic builds an untyped column from configuration. Its Go value type
// follows the kind: int64, string or bool.
func Dynamic(name string, kind Kind, nullable bool) (Arg, error) {
	var a Arg
	switch kind {
	case KindInteger:
		a = withNullable(Int64(name), nullable)
	case KindText:
		a = withNullable(Text(name), nullable)
	case KindBool:
		a = withNullable(Bool(name), nullable)
	default:
		return nil, fmt.Errorf("column %q: unsupported kind %v", name, kind)
	}
	return a, nil
}

func withNullable[T any](c Column[T], nullable bool) Column[T] {
	if nullable {
		return c.Nullable()
	}
	return c
}

// Coerce converts a loosely typed Go value (as decoded from YAML, JSON or
// a command line) into a cell for a.
func Coerce(a Arg, v any) (value.Value, error) {
	if v == nil {
		return a.Cell(nil)
	}
	switch a.Kind() {
	case KindInteger:
		switch n := v.(type) {
		case int:
			return a.Cell(int64(n))
		case int64:
			return a.Cell(n)
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("column %q: %v is not an integer", a.Name(), n)
			}
			return a.Cell(int64(n))
		case string:
			parsed, err := a.ParseSegment(n)
			if err != nil {
				return nil, err
			}
			return a.Cell(parsed)
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return a.Cell(b)
		case string:
			parsed, err := a.ParseSegment(b)
			if err != nil {
				return nil, err
			}
			return a.Cell(parsed)
		}
	case KindText:
		switch s := v.(type) {
		case string:
			return a.Cell(s)
		case int, int64, bool:
			return a.Cell(fmt.Sprint(s))
		}
	}
	return nil, fmt.Errorf("column %q: cannot use %T as %v", a.Name(), v, a.Kind())
}
