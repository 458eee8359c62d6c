package route

import (
	"net/url"

	"github.com/roach88/livestore/internal/column"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/value"
)

// Route is an immutable pattern-to-table binding. Created by
// Registry.Register and never mutated afterwards.
type Route struct {
	name     string
	table    string
	pattern  *Pattern
	order    []queryir.Order
	defaults value.Row
	seq      int // registration order, for tie-breaking
}

// Option configures a route at registration.
type Option func(*Route)

// WithName sets a human-readable name. Defaults to the pattern string.
func WithName(name string) Option {
	return func(r *Route) { r.name = name }
}

// WithOrder sets the default ordering for queries through the route.
func WithOrder(order ...queryir.Order) Option {
	return func(r *Route) { r.order = append([]queryir.Order(nil), order...) }
}

// WithDefaults sets values applied on insert for omitted columns.
func WithDefaults(defaults value.Row) Option {
	return func(r *Route) { r.defaults = defaults.Clone() }
}

// Name returns the route name.
func (r *Route) Name() string { return r.name }

// Table returns the backing table.
func (r *Route) Table() string { return r.table }

// Pattern returns the wildcard form, e.g. "/tasks/#".
func (r *Route) Pattern() string { return r.pattern.String() }

// Order returns a copy of the default ordering.
func (r *Route) Order() []queryir.Order {
	return append([]queryir.Order(nil), r.order...)
}

// Defaults returns a copy of the insert defaults.
func (r *Route) Defaults() value.Row {
	if r.defaults == nil {
		return value.Row{}
	}
	return r.defaults.Clone()
}

// Args returns the argument columns in positional order.
func (r *Route) Args() []column.Arg {
	var out []column.Arg
	for _, s := range r.pattern.segments {
		if s.isArg() {
			out = append(out, s.arg)
		}
	}
	return out
}

// ArgCount returns the number of argument segments.
func (r *Route) ArgCount() int {
	n := 0
	for _, s := range r.pattern.segments {
		if s.isArg() {
			n++
		}
	}
	return n
}

// CreateIdentifier builds the identifier for args. Exactly ArgCount
// arguments are required, each of its column's Go type.
func (r *Route) CreateIdentifier(args ...any) (Identifier, error) {
	if len(args) != r.ArgCount() {
		return "", errs.New(errs.CodeArgumentCount,
			"route %s takes %d arguments, got %d", r.Pattern(), r.ArgCount(), len(args))
	}
	segs := make([]string, 0, len(r.pattern.segments))
	i := 0
	for _, s := range r.pattern.segments {
		if !s.isArg() {
			segs = append(segs, s.literal)
			continue
		}
		if args[i] == nil {
			return "", errs.New(errs.CodeMissingValue,
				"route %s: argument %d (%s) is nil", r.Pattern(), i, s.arg.Name())
		}
		str, err := s.arg.FormatSegment(args[i])
		if err != nil {
			return "", &errs.Error{Code: errs.CodeInvalidArgument,
				Message: "route " + r.Pattern(), Err: err}
		}
		segs = append(segs, str)
		i++
	}
	return Join(segs...), nil
}

// ParseArguments extracts the typed argument values from id.
func (r *Route) ParseArguments(id Identifier) ([]any, error) {
	args, err := r.parse(id.Segments())
	if err != nil {
		return nil, err.WithIdentifier(string(id))
	}
	return args, nil
}

func (r *Route) parse(segs []string) ([]any, *errs.Error) {
	if len(segs) != len(r.pattern.segments) {
		return nil, errs.New(errs.CodeWrongPath,
			"wrong path: expected %d segments for %s, got %d", len(r.pattern.segments), r.Pattern(), len(segs))
	}
	args := make([]any, 0, r.ArgCount())
	for i, s := range r.pattern.segments {
		if !s.isArg() {
			if segs[i] != s.literal {
				return nil, errs.New(errs.CodeWrongPath,
					"wrong path: segment %d is %q, expected %q", i, segs[i], s.literal)
			}
			continue
		}
		v, err := s.arg.ParseSegment(segs[i])
		if err != nil {
			return nil, &errs.Error{Code: errs.CodeWrongPath,
				Message: "wrong path: segment " + url.PathEscape(segs[i]), Err: err}
		}
		args = append(args, v)
	}
	return args, nil
}

// Condition returns the predicate selecting the rows id denotes.
// Routes without arguments yield queryir.True.
func (r *Route) Condition(id Identifier) (queryir.Predicate, error) {
	args, err := r.ParseArguments(id)
	if err != nil {
		return nil, err
	}
	return r.conditionFor(args)
}

func (r *Route) conditionFor(args []any) (queryir.Predicate, error) {
	preds := make([]queryir.Predicate, 0, len(args))
	i := 0
	for _, s := range r.pattern.segments {
		if !s.isArg() {
			continue
		}
		cell, err := s.arg.Cell(args[i])
		if err != nil {
			return nil, &errs.Error{Code: errs.CodeInvalidArgument, Message: "route " + r.Pattern(), Err: err}
		}
		preds = append(preds, queryir.Compare{Field: s.arg.Name(), Op: s.op, Value: cell})
		i++
	}
	return queryir.AndOf(preds...), nil
}

// moreSpecific reports whether r should win over other for the same
// identifier: the first differing position prefers a literal.
func (r *Route) moreSpecific(other *Route) bool {
	for i := range r.pattern.segments {
		a, b := r.pattern.segments[i].isArg(), other.pattern.segments[i].isArg()
		if a != b {
			return !a
		}
	}
	return r.seq < other.seq
}
