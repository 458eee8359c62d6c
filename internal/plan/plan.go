// Package plan turns model descriptions into executor inputs and raw rows
// back into typed values.
//
// A Model[T] describes how T maps onto a table. Read plans pair a
// projection with a decoder; write plans carry encoded column values.
// Plans are cheap to build and are built fresh per call.
package plan

import (
	"fmt"
	"slices"

	"github.com/roach88/livestore/internal/column"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/value"
)

// Model maps T onto rows of Table.
type Model[T any] struct {
	Table   string
	Columns []string
	Decode  func(value.Row) (T, error)
	Encode  func(T) (value.Row, error)
}

// Write encodes v into a write plan.
func (m Model[T]) Write(v T) (WritePlan, error) {
	if m.Encode == nil {
		return WritePlan{}, fmt.Errorf("model %s has no encoder", m.Table)
	}
	row, err := m.Encode(v)
	if err != nil {
		return WritePlan{}, fmt.Errorf("encode %s: %w", m.Table, err)
	}
	return Values(row), nil
}

// RowSource is a forward-only row iterator, satisfied by *store.Rows.
type RowSource interface {
	Next() bool
	Row() value.Row
	Err() error
}

// ReadPlan pairs a projection with a decoder producing R.
type ReadPlan[R any] struct {
	columns []string
	limit   *int
	collect func(RowSource) (R, error)
}

// NewRead builds a read plan from a projection and a collector. An empty
// projection selects every column.
func NewRead[R any](columns []string, collect func(RowSource) (R, error)) ReadPlan[R] {
	return ReadPlan[R]{columns: slices.Clone(columns), collect: collect}
}

// Columns returns the projection.
func (p ReadPlan[R]) Columns() []string {
	return slices.Clone(p.columns)
}

// Collect drains rows through the decoder.
func (p ReadPlan[R]) Collect(rows RowSource) (R, error) {
	out, err := p.collect(rows)
	if err != nil {
		var zero R
		return zero, err
	}
	if err := rows.Err(); err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

// List decodes every row through m.
func List[T any](m Model[T]) ReadPlan[[]T] {
	return NewRead(m.Columns, func(rows RowSource) ([]T, error) {
		out := []T{}
		for rows.Next() {
			v, err := m.Decode(rows.Row())
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", m.Table, err)
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// First decodes the first row through m. The result is nil when no row
// matched.
func First[T any](m Model[T]) ReadPlan[*T] {
	p := NewRead(m.Columns, func(rows RowSource) (*T, error) {
		if !rows.Next() {
			return nil, nil
		}
		v, err := m.Decode(rows.Row())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.Table, err)
		}
		return &v, nil
	})
	one := 1
	p.limit = &one
	return p
}

// Count counts matching rows.
func Count() ReadPlan[int] {
	return NewRead([]string{"rowid"}, func(rows RowSource) (int, error) {
		n := 0
		for rows.Next() {
			n++
		}
		return n, nil
	})
}

// Rows returns raw rows projected to cols (every column when empty).
func Rows(cols ...string) ReadPlan[[]value.Row] {
	return NewRead(cols, func(rows RowSource) ([]value.Row, error) {
		out := []value.Row{}
		for rows.Next() {
			out = append(out, rows.Row())
		}
		return out, nil
	})
}

// Single reads one column of the first row. ok is false when no row matched.
func Single[T any](c column.Column[T]) ReadPlan[Maybe[T]] {
	p := NewRead([]string{c.Name()}, func(rows RowSource) (Maybe[T], error) {
		if !rows.Next() {
			return Maybe[T]{}, nil
		}
		v, ok, err := c.Decode(rows.Row())
		if err != nil {
			return Maybe[T]{}, err
		}
		return Maybe[T]{Value: v, OK: ok}, nil
	})
	one := 1
	p.limit = &one
	return p
}

// Maybe is a value that may be absent.
type Maybe[T any] struct {
	Value T
	OK    bool
}

// WritePlan holds encoded column values for an insert or update.
type WritePlan struct {
	values value.Row
}

// Values wraps an encoded row.
func Values(row value.Row) WritePlan {
	return WritePlan{values: row.Clone()}
}

// Assign builds a write plan from typed assignments.
func Assign(as ...column.Assignment) WritePlan {
	return WritePlan{values: column.Row(as...)}
}

// Row returns a copy of the encoded values.
func (w WritePlan) Row() value.Row {
	if w.values == nil {
		return value.Row{}
	}
	return w.values.Clone()
}

// Len returns the number of columns written.
func (w WritePlan) Len() int {
	return len(w.values)
}

// WithDefaults returns a plan where every column of defaults the plan
// does not set takes the default value.
func (w WritePlan) WithDefaults(defaults value.Row) WritePlan {
	out := w.Row()
	for col, v := range defaults {
		if _, ok := out[col]; !ok {
			out[col] = v
		}
	}
	return WritePlan{values: out}
}

// Page carries ordering and paging for a read.
type Page struct {
	Order  []queryir.Order
	Limit  *int
	Offset *int
}

// WithLimit returns a copy of p limited to n rows.
func (p Page) WithLimit(n int) Page {
	p.Limit = &n
	return p
}

// WithOffset returns a copy of p skipping n rows.
func (p Page) WithOffset(n int) Page {
	p.Offset = &n
	return p
}

// Select builds the statement for read over table. A plan-imposed limit
// (First, Single) caps the page limit.
func Select[R any](table string, read ReadPlan[R], cond queryir.Predicate, page Page) queryir.Select {
	limit := page.Limit
	if read.limit != nil && (limit == nil || *read.limit < *limit) {
		limit = read.limit
	}
	return queryir.Select{
		From:    table,
		Columns: read.Columns(),
		Filter:  cond,
		OrderBy: slices.Clone(page.Order),
		Limit:   limit,
		Offset:  page.Offset,
	}
}
