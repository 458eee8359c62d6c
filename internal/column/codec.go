package column

import (
	"fmt"
	"strconv"

	"github.com/roach88/livestore/internal/value"
)

// Codec moves a Go type between cells and identifier segments.
type Codec[T any] interface {
	Kind() Kind
	Encode(v T) value.Value
	Decode(v value.Value) (T, error)
	Format(v T) string
	Parse(s string) (T, error)
}

// IntCodec encodes int64 as INTEGER and decimal segments.
type IntCodec struct{}

func (IntCodec) Kind() Kind { return KindInteger }

func (IntCodec) Encode(v int64) value.Value { return value.Int(v) }

func (IntCodec) Decode(v value.Value) (int64, error) {
	switch c := v.(type) {
	case value.Int:
		return int64(c), nil
	case value.Bool:
		if c {
			return 1, nil
		}
		return 0, nil
	case value.Text:
		return strconv.ParseInt(string(c), 10, 64)
	}
	return 0, fmt.Errorf("cannot decode %T as integer", v)
}

func (IntCodec) Format(v int64) string { return strconv.FormatInt(v, 10) }

func (IntCodec) Parse(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("segment %q is not an integer", s)
	}
	return n, nil
}

// TextCodec encodes strings as TEXT and verbatim segments.
type TextCodec struct{}

func (TextCodec) Kind() Kind { return KindText }

func (TextCodec) Encode(v string) value.Value { return value.Text(v) }

func (TextCodec) Decode(v value.Value) (string, error) {
	switch c := v.(type) {
	case value.Text:
		return string(c), nil
	case value.Int, value.Bool:
		return value.String(c), nil
	}
	return "", fmt.Errorf("cannot decode %T as text", v)
}

func (TextCodec) Format(v string) string { return v }

func (TextCodec) Parse(s string) (string, error) { return s, nil }

// BoolCodec encodes bool as a boolean cell and "true"/"false" segments.
// SQLite returns booleans as INTEGER 0/1, which Decode accepts.
type BoolCodec struct{}

func (BoolCodec) Kind() Kind { return KindBool }

func (BoolCodec) Encode(v bool) value.Value { return value.Bool(v) }

func (BoolCodec) Decode(v value.Value) (bool, error) {
	switch c := v.(type) {
	case value.Bool:
		return bool(c), nil
	case value.Int:
		return c != 0, nil
	case value.Text:
		return strconv.ParseBool(string(c))
	}
	return false, fmt.Errorf("cannot decode %T as bool", v)
}

func (BoolCodec) Format(v bool) string { return strconv.FormatBool(v) }

func (BoolCodec) Parse(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("segment %q is not a bool", s)
	}
	return b, nil
}
