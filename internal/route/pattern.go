package route

import (
	"fmt"
	"strings"

	"github.com/roach88/livestore/internal/column"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/queryir"
)

// segment is either a literal or an argument.
type segment struct {
	literal string
	arg     column.Arg
	op      queryir.Op
}

func (s segment) isArg() bool { return s.arg != nil }

func (s segment) String() string {
	if s.isArg() {
		return s.arg.Kind().Wildcard()
	}
	return s.literal
}

// Pattern is an immutable chain of path segments. Builder methods return a
// new Pattern; the first construction error sticks and is reported by Err
// and by Registry.Register.
type Pattern struct {
	segments []segment
	err      error
}

// Path starts a pattern with literal segments.
func Path(literals ...string) *Pattern {
	p := &Pattern{}
	for _, l := range literals {
		p = p.Literal(l)
	}
	return p
}

func (p *Pattern) with(s segment, err error) *Pattern {
	next := &Pattern{
		segments: append(append([]segment(nil), p.segments...), s),
		err:      p.err,
	}
	if next.err == nil {
		next.err = err
	}
	return next
}

// Literal appends a literal segment.
func (p *Pattern) Literal(s string) *Pattern {
	var err error
	if s == "" || strings.Contains(s, "/") || s == "#" || s == "*" {
		err = errs.New(errs.CodeInvalidArgument, "invalid literal segment %q", s)
	}
	return p.with(segment{literal: s}, err)
}

// Arg appends an argument segment comparing c with op.
// Nullable columns are rejected: a positional segment cannot carry NULL.
func (p *Pattern) Arg(c column.Arg, op queryir.Op) *Pattern {
	var err error
	switch {
	case c == nil:
		err = errs.New(errs.CodeInvalidArgument, "nil argument column")
	case c.IsNullable():
		err = errs.New(errs.CodeNullableArgument, "column %q is nullable and cannot be a path argument", c.Name())
	case !queryir.ValidIdentifier(c.Name()):
		err = errs.New(errs.CodeInvalidArgument, "invalid argument column %q", c.Name())
	case !op.Valid():
		err = errs.New(errs.CodeInvalidArgument, "invalid operator %q for column %q", op, c.Name())
	}
	return p.with(segment{arg: c, op: op}, err)
}

// IsEqualTo appends an argument matching column = segment.
func (p *Pattern) IsEqualTo(c column.Arg) *Pattern { return p.Arg(c, queryir.OpEq) }

// IsNotEqualTo appends an argument matching column <> segment.
func (p *Pattern) IsNotEqualTo(c column.Arg) *Pattern { return p.Arg(c, queryir.OpNe) }

// IsLessThan appends an argument matching column < segment.
func (p *Pattern) IsLessThan(c column.Arg) *Pattern { return p.Arg(c, queryir.OpLt) }

// IsLessOrEqualThan appends an argument matching column <= segment.
func (p *Pattern) IsLessOrEqualThan(c column.Arg) *Pattern { return p.Arg(c, queryir.OpLe) }

// IsGreaterThan appends an argument matching column > segment.
func (p *Pattern) IsGreaterThan(c column.Arg) *Pattern { return p.Arg(c, queryir.OpGt) }

// IsGreaterOrEqualThan appends an argument matching column >= segment.
func (p *Pattern) IsGreaterOrEqualThan(c column.Arg) *Pattern { return p.Arg(c, queryir.OpGe) }

// Err returns the first construction error, if any.
func (p *Pattern) Err() error { return p.err }

// Len returns the number of segments.
func (p *Pattern) Len() int { return len(p.segments) }

// String renders the pattern with wildcards: "/tasks/#".
func (p *Pattern) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

var opSuffixes = map[string]queryir.Op{
	"":   queryir.OpEq,
	"eq": queryir.OpEq,
	"ne": queryir.OpNe,
	"lt": queryir.OpLt,
	"le": queryir.OpLe,
	"gt": queryir.OpGt,
	"ge": queryir.OpGe,
}

// ParsePattern parses the textual form used in configuration:
//
//	/tasks/{id}            id = segment
//	/tasks/after/{id:gt}   id > segment
//
// lookup resolves argument column names.
func ParsePattern(s string, lookup func(name string) (column.Arg, bool)) (*Pattern, error) {
	p := &Pattern{}
	for _, raw := range strings.Split(s, "/") {
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
			p = p.Literal(raw)
			continue
		}
		name, suffix, _ := strings.Cut(raw[1:len(raw)-1], ":")
		op, ok := opSuffixes[suffix]
		if !ok {
			return nil, errs.New(errs.CodeInvalidArgument, "pattern %q: unknown operator %q", s, suffix)
		}
		col, ok := lookup(name)
		if !ok {
			return nil, errs.New(errs.CodeInvalidArgument, "pattern %q: unknown column %q", s, name)
		}
		p = p.Arg(col, op)
	}
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", s, err)
	}
	return p, nil
}
