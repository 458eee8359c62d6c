package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/roach88/livestore/internal/column"
	"github.com/roach88/livestore/internal/dispatch"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/value"
	"github.com/roach88/livestore/internal/watch"
)

// Pool policies.
const (
	PolicyPerKey      = "per-key"
	PolicyPerObserver = "per-observer"
	PolicyBounded     = "bounded"
)

// Strategy returns the configured watch strategy.
func (c *Config) Strategy() (watch.Strategy, error) {
	return watch.ParseStrategy(c.Watch.Strategy)
}

// Grace returns the pool's eviction delay, or dispatch.DefaultGrace when
// unset.
func (c *Config) Grace() (time.Duration, error) {
	if c.Pool.Grace == "" {
		return dispatch.DefaultGrace, nil
	}
	d, err := time.ParseDuration(c.Pool.Grace)
	if err != nil {
		return 0, fmt.Errorf("pool.grace: %w", err)
	}
	return d, nil
}

// Policy builds the configured dispatcher policy.
func (c *Config) Policy(clk clock.Clock) (dispatch.Policy, error) {
	switch c.Pool.Policy {
	case "", PolicyPerKey:
		return dispatch.NewPerKey(clk), nil
	case PolicyPerObserver:
		return dispatch.NewPerObserver(clk), nil
	case PolicyBounded:
		return dispatch.NewBounded(clk, c.Pool.Min, c.Pool.Max, c.Pool.Capacity), nil
	}
	return nil, &Error{Field: "pool.policy", Message: fmt.Sprintf("unknown policy %q", c.Pool.Policy)}
}

// NewPool builds a dispatcher pool from the pool section.
func (c *Config) NewPool(clk clock.Clock) (*dispatch.Pool, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	policy, err := c.Policy(clk)
	if err != nil {
		return nil, err
	}
	grace, err := c.Grace()
	if err != nil {
		return nil, err
	}
	return dispatch.NewPool(policy, dispatch.WithClock(clk), dispatch.WithGrace(grace)), nil
}

// Schema is the typed form of the tables section.
type Schema struct {
	tables map[string]map[string]column.Arg
}

// Schema builds typed columns for every declared table.
func (c *Config) Schema() (*Schema, error) {
	s := &Schema{tables: make(map[string]map[string]column.Arg, len(c.Tables))}
	for name, t := range c.Tables {
		if !queryir.ValidIdentifier(name) {
			return nil, &Error{Field: "tables", Message: fmt.Sprintf("invalid table name %q", name)}
		}
		cols := make(map[string]column.Arg, len(t.Columns))
		for colName, spec := range t.Columns {
			field := fmt.Sprintf("tables.%s.columns.%s", name, colName)
			kind, err := column.ParseKind(spec.Kind)
			if err != nil {
				return nil, &Error{Field: field, Message: err.Error()}
			}
			a, err := column.Dynamic(colName, kind, spec.Nullable)
			if err != nil {
				return nil, &Error{Field: field, Message: err.Error()}
			}
			cols[colName] = a
		}
		s.tables[name] = cols
	}
	return s, nil
}

// Tables returns the table names in order.
func (s *Schema) Tables() []string {
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Columns returns a table's column names in order.
func (s *Schema) Columns(table string) []string {
	cols := s.tables[table]
	out := make([]string, 0, len(cols))
	for name := range cols {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Column looks up one column.
func (s *Schema) Column(table, name string) (column.Arg, bool) {
	a, ok := s.tables[table][name]
	return a, ok
}

// Lookup returns a column resolver for table, for route.ParsePattern.
func (s *Schema) Lookup(table string) func(string) (column.Arg, bool) {
	return func(name string) (column.Arg, bool) { return s.Column(table, name) }
}

// Row coerces loosely typed values into a row of table.
func (s *Schema) Row(table string, values map[string]any) (value.Row, error) {
	row := make(value.Row, len(values))
	for name, v := range values {
		a, ok := s.Column(table, name)
		if !ok {
			return nil, fmt.Errorf("table %q has no column %q", table, name)
		}
		cell, err := column.Coerce(a, v)
		if err != nil {
			return nil, err
		}
		row[name] = cell
	}
	return row, nil
}

// Where builds a conjunction of column equalities over table. A nil value
// matches NULL.
func (s *Schema) Where(table string, eq map[string]any) (queryir.Predicate, error) {
	row, err := s.Row(table, eq)
	if err != nil {
		return nil, err
	}
	preds := make([]queryir.Predicate, 0, len(row))
	for _, col := range row.SortedKeys() {
		cell := row[col]
		if value.IsNull(cell) {
			preds = append(preds, queryir.IsNull{Field: col})
			continue
		}
		preds = append(preds, queryir.Compare{Field: col, Op: queryir.OpEq, Value: cell})
	}
	return queryir.AndOf(preds...), nil
}

// Plain converts a row of table into JSON-ready Go values. Booleans
// stored as integers come back as booleans.
func (s *Schema) Plain(table string, row value.Row) map[string]any {
	out := make(map[string]any, len(row))
	for name, cell := range row {
		v, err := value.ToDriver(cell)
		if err != nil {
			v = value.String(cell)
		}
		if a, ok := s.Column(table, name); ok && a.Kind() == column.KindBool {
			if n, isInt := cell.(value.Int); isInt {
				v = n != 0
			}
		}
		out[name] = v
	}
	return out
}

// RegisterRoutes registers every configured route on reg, in order.
func (c *Config) RegisterRoutes(reg *route.Registry, s *Schema) ([]*route.Route, error) {
	out := make([]*route.Route, 0, len(c.Routes))
	for i, r := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		p, err := route.ParsePattern(r.Path, s.Lookup(r.Table))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		order, err := parseOrder(r.Order)
		if err != nil {
			return nil, &Error{Field: field + ".order", Message: err.Error()}
		}
		defaults, err := s.Row(r.Table, r.Defaults)
		if err != nil {
			return nil, &Error{Field: field + ".defaults", Message: err.Error()}
		}
		opts := []route.Option{route.WithOrder(order...), route.WithDefaults(defaults)}
		if r.Name != "" {
			opts = append(opts, route.WithName(r.Name))
		}
		rt, err := reg.Register(r.Table, p, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, rt)
	}
	return out, nil
}

func parseOrder(specs []string) ([]queryir.Order, error) {
	out := make([]queryir.Order, 0, len(specs))
	for _, spec := range specs {
		name, desc := strings.CutPrefix(spec, "-")
		if !queryir.ValidIdentifier(name) {
			return nil, fmt.Errorf("invalid order column %q", spec)
		}
		if desc {
			out = append(out, queryir.Desc(name))
		} else {
			out = append(out, queryir.Asc(name))
		}
	}
	return out, nil
}
