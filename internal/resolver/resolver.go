// Package resolver is the client-facing facade of the data-access core.
//
// Every operation addresses data by identifier. The identifier is resolved
// to a route, the route's table and condition feed a plan, the plan runs
// on the executor, and writes that changed something notify the change
// bus. Async variants run the executor call on the worker context and
// return an async.Result.
package resolver

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/roach88/livestore/internal/async"
	"github.com/roach88/livestore/internal/changes"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/store"
	"github.com/roach88/livestore/internal/value"
)

// Executor runs statements. *store.Store and *store.Tx satisfy it.
type Executor interface {
	Exists(ctx context.Context, table string, cond queryir.Predicate) (bool, error)
	Query(ctx context.Context, sel queryir.Select) (*store.Rows, error)
	Insert(ctx context.Context, table string, values value.Row) (int64, bool, error)
	Update(ctx context.Context, table string, values value.Row, cond queryir.Predicate) (int64, bool, error)
	Delete(ctx context.Context, table string, cond queryir.Predicate) (int64, bool, error)
}

// Database is an Executor that can open transactions.
type Database interface {
	Executor
	InTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Resolver resolves identifiers and runs operations against them.
type Resolver struct {
	routes   *route.Registry
	exec     Executor
	db       Database // nil inside a transaction
	bus      changes.Sink
	notifier changes.Notifier
	workers  *async.Context
}

// New creates a resolver. Writes notify bus immediately.
func New(routes *route.Registry, db Database, bus changes.Sink, workers *async.Context) *Resolver {
	return &Resolver{
		routes:   routes,
		exec:     db,
		db:       db,
		bus:      bus,
		notifier: changes.NewImmediate(bus),
		workers:  workers,
	}
}

// Routes returns the route registry.
func (r *Resolver) Routes() *route.Registry { return r.routes }

// Workers returns the worker context used by async variants.
func (r *Resolver) Workers() *async.Context { return r.workers }

// QueryOption refines a query beyond what the identifier selects.
type QueryOption func(*queryOptions)

type queryOptions struct {
	where queryir.Predicate
	order []queryir.Order
	page  plan.Page
}

// Where adds a condition, AND-ed with the identifier's condition.
func Where(p queryir.Predicate) QueryOption {
	return func(o *queryOptions) { o.where = queryir.AndOf(o.where, p) }
}

// OrderBy replaces the route's default ordering.
func OrderBy(order ...queryir.Order) QueryOption {
	return func(o *queryOptions) { o.order = order }
}

// Limit caps the number of rows.
func Limit(n int) QueryOption {
	return func(o *queryOptions) { o.page = o.page.WithLimit(n) }
}

// Offset skips rows.
func Offset(n int) QueryOption {
	return func(o *queryOptions) { o.page = o.page.WithOffset(n) }
}

// Statement builds the SELECT a query on id would run.
func Statement[R any](r *Resolver, id route.Identifier, read plan.ReadPlan[R], opts ...QueryOption) (queryir.Select, error) {
	rt, cond, err := r.routes.Condition(id)
	if err != nil {
		return queryir.Select{}, err
	}
	o := queryOptions{order: rt.Order()}
	for _, opt := range opts {
		opt(&o)
	}
	page := o.page
	page.Order = o.order
	return plan.Select(rt.Table(), read, queryir.AndOf(cond, o.where), page), nil
}

// Query reads id through read.
func Query[R any](ctx context.Context, r *Resolver, id route.Identifier, read plan.ReadPlan[R], opts ...QueryOption) (R, error) {
	sel, err := Statement(r, id, read, opts...)
	if err != nil {
		var zero R
		return zero, err
	}
	return run(ctx, r.exec, sel, read)
}

func run[R any](ctx context.Context, exec Executor, sel queryir.Select, read plan.ReadPlan[R]) (R, error) {
	var zero R
	rows, err := exec.Query(ctx, sel)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	v, err := read.Collect(rows)
	if err != nil {
		return zero, errs.Execution(err, "collect %s", sel.From)
	}
	return v, nil
}

// QueryAsync is Query on the worker context. Resolution errors settle the
// handle immediately.
func QueryAsync[R any](r *Resolver, id route.Identifier, read plan.ReadPlan[R], opts ...QueryOption) *async.Result[R] {
	sel, err := Statement(r, id, read, opts...)
	if err != nil {
		return async.Failed[R](err)
	}
	exec := r.exec
	return async.Go(r.workers, func(ctx context.Context) (R, bool, error) {
		v, err := run(ctx, exec, sel, read)
		return v, err == nil, err
	})
}

// Exists reports whether id, narrowed by cond, selects any row.
func (r *Resolver) Exists(ctx context.Context, id route.Identifier, cond queryir.Predicate) (bool, error) {
	rt, base, err := r.routes.Condition(id)
	if err != nil {
		return false, err
	}
	return r.exec.Exists(ctx, rt.Table(), queryir.AndOf(base, cond))
}

// insertPlan resolves a collection identifier into the table and the
// values to insert: w, then equality arguments of the identifier, then
// route defaults.
func (r *Resolver) insertPlan(id route.Identifier, w plan.WritePlan) (*route.Route, value.Row, error) {
	rt, cond, err := r.routes.Condition(id)
	if err != nil {
		return nil, nil, err
	}
	if w.Len() == 0 {
		return rt, nil, nil
	}
	fromPath := value.Row{}
	for _, p := range flatten(cond) {
		if c, ok := p.(queryir.Compare); ok && c.Op == queryir.OpEq {
			fromPath[c.Field] = c.Value
		}
	}
	return rt, w.WithDefaults(fromPath).WithDefaults(rt.Defaults()).Row(), nil
}

func flatten(p queryir.Predicate) []queryir.Predicate {
	if and, ok := p.(queryir.And); ok {
		return and.Predicates
	}
	return []queryir.Predicate{p}
}

// rowIdentifier names a freshly inserted row: the collection identifier
// plus the rowid when a route on the same table resolves it, otherwise the
// collection identifier itself.
func (r *Resolver) rowIdentifier(collection route.Identifier, table string, rowid int64) route.Identifier {
	id := collection.Normalize().Append(strconv.FormatInt(rowid, 10))
	if rt, err := r.routes.Match(id); err == nil && rt.Table() == table {
		return id
	}
	return collection.Normalize()
}

// Insert adds one row under the collection identifier id. Returns the new
// row's identifier; ok is false when w is empty and nothing was written.
func (r *Resolver) Insert(ctx context.Context, id route.Identifier, w plan.WritePlan) (route.Identifier, bool, error) {
	rt, values, err := r.insertPlan(id, w)
	if err != nil {
		return "", false, err
	}
	return r.insert(ctx, id, rt, values)
}

func (r *Resolver) insert(ctx context.Context, id route.Identifier, rt *route.Route, values value.Row) (route.Identifier, bool, error) {
	rowid, ok, err := r.exec.Insert(ctx, rt.Table(), values)
	if err != nil || !ok {
		return "", false, err
	}
	newID := r.rowIdentifier(id, rt.Table(), rowid)
	slog.Debug("inserted", "identifier", string(newID), "table", rt.Table())
	r.notifier.NotifyChange(newID)
	return newID, true, nil
}

// InsertAsync is Insert on the worker context.
func (r *Resolver) InsertAsync(id route.Identifier, w plan.WritePlan) *async.Result[route.Identifier] {
	rt, values, err := r.insertPlan(id, w)
	if err != nil {
		return async.Failed[route.Identifier](err)
	}
	return async.Go(r.workers, func(ctx context.Context) (route.Identifier, bool, error) {
		return r.insert(ctx, id, rt, values)
	})
}

// Update writes w to the rows id selects, narrowed by cond. ok is false
// when nothing matched or w is empty.
func (r *Resolver) Update(ctx context.Context, id route.Identifier, w plan.WritePlan, cond queryir.Predicate) (int64, bool, error) {
	rt, where, err := r.writeTarget(id, cond)
	if err != nil {
		return 0, false, err
	}
	return r.update(ctx, id, rt, w, where)
}

func (r *Resolver) update(ctx context.Context, id route.Identifier, rt *route.Route, w plan.WritePlan, where queryir.Predicate) (int64, bool, error) {
	n, ok, err := r.exec.Update(ctx, rt.Table(), w.Row(), where)
	if err != nil || !ok {
		return 0, false, err
	}
	r.notifier.NotifyChange(id)
	return n, true, nil
}

// UpdateAsync is Update on the worker context.
func (r *Resolver) UpdateAsync(id route.Identifier, w plan.WritePlan, cond queryir.Predicate) *async.Result[int64] {
	rt, where, err := r.writeTarget(id, cond)
	if err != nil {
		return async.Failed[int64](err)
	}
	return async.Go(r.workers, func(ctx context.Context) (int64, bool, error) {
		return r.update(ctx, id, rt, w, where)
	})
}

// Delete removes the rows id selects, narrowed by cond. ok is false when
// nothing matched.
func (r *Resolver) Delete(ctx context.Context, id route.Identifier, cond queryir.Predicate) (int64, bool, error) {
	rt, where, err := r.writeTarget(id, cond)
	if err != nil {
		return 0, false, err
	}
	return r.delete(ctx, id, rt, where)
}

func (r *Resolver) delete(ctx context.Context, id route.Identifier, rt *route.Route, where queryir.Predicate) (int64, bool, error) {
	n, ok, err := r.exec.Delete(ctx, rt.Table(), where)
	if err != nil || !ok {
		return 0, false, err
	}
	r.notifier.NotifyChange(id)
	return n, true, nil
}

// DeleteAsync is Delete on the worker context.
func (r *Resolver) DeleteAsync(id route.Identifier, cond queryir.Predicate) *async.Result[int64] {
	rt, where, err := r.writeTarget(id, cond)
	if err != nil {
		return async.Failed[int64](err)
	}
	return async.Go(r.workers, func(ctx context.Context) (int64, bool, error) {
		return r.delete(ctx, id, rt, where)
	})
}

func (r *Resolver) writeTarget(id route.Identifier, cond queryir.Predicate) (*route.Route, queryir.Predicate, error) {
	rt, base, err := r.routes.Condition(id)
	if err != nil {
		return nil, nil, err
	}
	return rt, queryir.AndOf(base, cond), nil
}

// InTx runs fn against a resolver bound to one transaction. Change
// notifications are buffered and sent only after a successful commit; a
// rollback discards them.
func (r *Resolver) InTx(ctx context.Context, fn func(tx *Resolver) error) error {
	if r.db == nil {
		return errs.New(errs.CodeInvalidArgument, "nested transactions are not supported")
	}
	delayed := changes.NewDelayed(r.bus)
	err := r.db.InTx(ctx, func(tx *store.Tx) error {
		return fn(&Resolver{
			routes:   r.routes,
			exec:     tx,
			bus:      r.bus,
			notifier: delayed,
			workers:  r.workers,
		})
	})
	if err != nil {
		delayed.Discard()
		return err
	}
	delayed.SendAll()
	return nil
}
