// Package querysql compiles queryir statements into parameterized SQL for SQLite.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/value"
)

// rowOrder is the deterministic tiebreaker appended to every SELECT.
const rowOrder = "rowid"

// SQLCompiler compiles statements to parameterized SQL.
//
// CRITICAL: values are ALWAYS bound as ? parameters, never interpolated.
// Identifiers are validated by queryir.Validate and then double-quoted.
// Every SELECT ends with a rowid tiebreaker so results are deterministic.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a statement to (sql, params).
func (c *SQLCompiler) Compile(s queryir.Statement) (string, []any, error) {
	if err := queryir.Validate(s); err != nil {
		return "", nil, fmt.Errorf("invalid statement: %w", err)
	}

	switch st := s.(type) {
	case queryir.Select:
		return c.compileSelect(st)
	case *queryir.Select:
		return c.compileSelect(*st)
	case queryir.Exists:
		return c.compileExists(st)
	case *queryir.Exists:
		return c.compileExists(*st)
	case queryir.Insert:
		return c.compileInsert(st)
	case *queryir.Insert:
		return c.compileInsert(*st)
	case queryir.Update:
		return c.compileUpdate(st)
	case *queryir.Update:
		return c.compileUpdate(*st)
	case queryir.Delete:
		return c.compileDelete(st)
	case *queryir.Delete:
		return c.compileDelete(*st)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", s)
	}
}

// CompilePredicate compiles a bare predicate into a WHERE fragment.
// A nil or empty predicate compiles to "1 = 1".
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	return c.compilePredicate(p)
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		for i, col := range q.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quote(col))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(quote(q.From))

	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderClause(q.OrderBy))

	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		if q.Limit == nil {
			// SQLite requires LIMIT before OFFSET; -1 means unbounded.
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*q.Offset))
	}
	return b.String(), params, nil
}

// orderClause renders the requested ordering followed by the rowid tiebreaker.
func orderClause(order []queryir.Order) string {
	parts := make([]string, 0, len(order)+1)
	hasRowOrder := false
	for _, o := range order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		if o.Column == rowOrder {
			hasRowOrder = true
			parts = append(parts, rowOrder+" "+dir)
			continue
		}
		parts = append(parts, quote(o.Column)+" "+dir)
	}
	if !hasRowOrder {
		parts = append(parts, rowOrder+" ASC")
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compileExists(q queryir.Exists) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT EXISTS(SELECT 1 FROM ")
	b.WriteString(quote(q.From))
	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(")")
	return b.String(), params, nil
}

func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	if len(q.Values) == 0 {
		return "", nil, fmt.Errorf("insert into %q: no values", q.Into)
	}
	keys := q.Values.SortedKeys()
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, k := range keys {
		p, err := value.ToDriver(q.Values[k])
		if err != nil {
			return "", nil, fmt.Errorf("insert column %q: %w", k, err)
		}
		cols[i] = quote(k)
		marks[i] = "?"
		params[i] = p
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(q.Into), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	if len(q.Set) == 0 {
		return "", nil, fmt.Errorf("update %q: no assignments", q.Table)
	}
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(quote(q.Table))
	b.WriteString(" SET ")

	var params []any
	for i, k := range q.Set.SortedKeys() {
		if i > 0 {
			b.WriteString(", ")
		}
		p, err := value.ToDriver(q.Set[k])
		if err != nil {
			return "", nil, fmt.Errorf("update column %q: %w", k, err)
		}
		b.WriteString(quote(k))
		b.WriteString(" = ?")
		params = append(params, p)
	}

	whereParams, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return b.String(), append(params, whereParams...), nil
}

func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(quote(q.From))
	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return b.String(), params, nil
}

// writeWhere appends " WHERE ..." unless p filters nothing.
func (c *SQLCompiler) writeWhere(b *strings.Builder, p queryir.Predicate) ([]any, error) {
	if queryir.IsTrue(p) {
		return nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	b.WriteString(" WHERE ")
	b.WriteString(sql)
	return params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// CRITICAL: values NEVER interpolated - always ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if queryir.IsTrue(p) {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Compare:
		return c.compileCompare(pred)
	case *queryir.Compare:
		return c.compileCompare(*pred)
	case queryir.In:
		return c.compileIn(pred)
	case *queryir.In:
		return c.compileIn(*pred)
	case queryir.IsNull:
		return compileIsNull(pred), nil, nil
	case *queryir.IsNull:
		return compileIsNull(*pred), nil, nil
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "0 = 1")
	case *queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "0 = 1")
	case queryir.Not:
		return c.compileNot(pred.Predicate)
	case *queryir.Not:
		return c.compileNot(pred.Predicate)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileCompare compiles "field op ?". Comparing against NULL with = or <>
// becomes IS [NOT] NULL; ordering comparisons against NULL are rejected.
func (c *SQLCompiler) compileCompare(cmp queryir.Compare) (string, []any, error) {
	if value.IsNull(cmp.Value) {
		switch cmp.Op {
		case queryir.OpEq:
			return quote(cmp.Field) + " IS NULL", nil, nil
		case queryir.OpNe:
			return quote(cmp.Field) + " IS NOT NULL", nil, nil
		default:
			return "", nil, fmt.Errorf("column %q: operator %s cannot compare with NULL", cmp.Field, cmp.Op)
		}
	}
	param, err := value.ToDriver(cmp.Value)
	if err != nil {
		return "", nil, fmt.Errorf("column %q: %w", cmp.Field, err)
	}
	return fmt.Sprintf("%s %s ?", quote(cmp.Field), cmp.Op), []any{param}, nil
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "0 = 1", nil, nil
	}
	marks := make([]string, len(in.Values))
	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		p, err := value.ToDriver(v)
		if err != nil {
			return "", nil, fmt.Errorf("column %q IN[%d]: %w", in.Field, i, err)
		}
		marks[i] = "?"
		params[i] = p
	}
	return fmt.Sprintf("%s IN (%s)", quote(in.Field), strings.Join(marks, ", ")), params, nil
}

func compileIsNull(n queryir.IsNull) string {
	if n.Negate {
		return quote(n.Field) + " IS NOT NULL"
	}
	return quote(n.Field) + " IS NULL"
}

// compileJunction joins children with sep. Composite children are
// parenthesized so precedence never depends on SQL's AND/OR binding.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		if composite(p) {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, sep), params, nil
}

func (c *SQLCompiler) compileNot(p queryir.Predicate) (string, []any, error) {
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", params, nil
}

func composite(p queryir.Predicate) bool {
	switch pred := p.(type) {
	case queryir.And:
		return len(pred.Predicates) > 1
	case *queryir.And:
		return len(pred.Predicates) > 1
	case queryir.Or:
		return len(pred.Predicates) > 1
	case *queryir.Or:
		return len(pred.Predicates) > 1
	}
	return false
}

// quote double-quotes a validated identifier.
func quote(name string) string {
	return `"` + name + `"`
}
