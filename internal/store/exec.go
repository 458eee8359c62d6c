package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/querysql"
	"github.com/roach88/livestore/internal/value"
)

// querier is the subset of *sql.DB and *sql.Tx the executor needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner implements the executor operations on top of a querier. Store and
// Tx embed it.
type runner struct {
	q        querier
	compiler *querysql.SQLCompiler
}

func (r runner) compile(s queryir.Statement) (string, []any, error) {
	query, params, err := r.compiler.Compile(s)
	if err != nil {
		return "", nil, &errs.Error{Code: errs.CodeInvalidArgument, Message: "compile " + queryir.Table(s), Err: err}
	}
	return query, params, nil
}

// Exists reports whether any row of table satisfies cond.
func (r runner) Exists(ctx context.Context, table string, cond queryir.Predicate) (bool, error) {
	query, params, err := r.compile(queryir.Exists{From: table, Filter: cond})
	if err != nil {
		return false, err
	}
	var found bool
	if err := r.q.QueryRowContext(ctx, query, params...).Scan(&found); err != nil {
		return false, errs.Execution(err, "exists %s", table)
	}
	return found, nil
}

// Query runs a SELECT and returns a lazy row producer. The caller must
// Close the returned Rows.
func (r runner) Query(ctx context.Context, sel queryir.Select) (*Rows, error) {
	query, params, err := r.compile(sel)
	if err != nil {
		return nil, err
	}
	slog.Debug("query", "sql", query, "params", len(params))
	rows, err := r.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errs.Execution(err, "query %s", sel.From)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, errs.Execution(err, "query %s: columns", sel.From)
	}
	return &Rows{rows: rows, cols: cols}, nil
}

// Insert adds one row and returns its rowid. ok is false when values is
// empty: nothing was written.
func (r runner) Insert(ctx context.Context, table string, values value.Row) (rowid int64, ok bool, err error) {
	if len(values) == 0 {
		return 0, false, nil
	}
	query, params, err := r.compile(queryir.Insert{Into: table, Values: values})
	if err != nil {
		return 0, false, err
	}
	res, err := r.q.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, false, errs.Execution(err, "insert %s", table)
	}
	rowid, err = res.LastInsertId()
	if err != nil {
		return 0, false, errs.Execution(err, "insert %s: last insert id", table)
	}
	return rowid, true, nil
}

// Update sets values on every row of table matching cond. ok is false when
// values is empty or no row matched.
func (r runner) Update(ctx context.Context, table string, values value.Row, cond queryir.Predicate) (affected int64, ok bool, err error) {
	if len(values) == 0 {
		return 0, false, nil
	}
	return r.exec(ctx, queryir.Update{Table: table, Set: values, Filter: cond})
}

// Delete removes every row of table matching cond. ok is false when no
// row matched.
func (r runner) Delete(ctx context.Context, table string, cond queryir.Predicate) (affected int64, ok bool, err error) {
	return r.exec(ctx, queryir.Delete{From: table, Filter: cond})
}

func (r runner) exec(ctx context.Context, s queryir.Statement) (int64, bool, error) {
	query, params, err := r.compile(s)
	if err != nil {
		return 0, false, err
	}
	res, err := r.q.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, false, errs.Execution(err, "write %s", queryir.Table(s))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, errs.Execution(err, "write %s: rows affected", queryir.Table(s))
	}
	if n == 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// Rows is a lazy row producer over a query result.
type Rows struct {
	rows *sql.Rows
	cols []string
	cur  value.Row
	err  error
}

// Columns returns the result column names.
func (r *Rows) Columns() []string {
	return r.cols
}

// Next advances to the next row. Returns false at the end of the result or
// on a decode error; check Err afterwards.
func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	raw := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = errs.Execution(err, "scan row")
		return false
	}
	row := make(value.Row, len(r.cols))
	for i, col := range r.cols {
		v, err := value.FromDriver(raw[i])
		if err != nil {
			r.err = errs.Execution(err, "decode column %q", col)
			return false
		}
		row[col] = v
	}
	r.cur = row
	return true
}

// Row returns the current row.
func (r *Rows) Row() value.Row {
	return r.cur
}

// Err returns the first error met while iterating.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Err(); err != nil {
		return errs.Execution(err, "iterate rows")
	}
	return nil
}

// Close releases the underlying result set.
func (r *Rows) Close() error {
	if err := r.rows.Close(); err != nil {
		return fmt.Errorf("close rows: %w", err)
	}
	return nil
}

// All drains rows into a slice and closes it.
func (r *Rows) All() ([]value.Row, error) {
	defer r.Close()
	out := []value.Row{}
	for r.Next() {
		out = append(out, r.Row())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
