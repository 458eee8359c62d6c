package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/juju/clock"

	"github.com/roach88/livestore/internal/async"
	"github.com/roach88/livestore/internal/changes"
	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/dispatch"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/resolver"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/store"
	"github.com/roach88/livestore/internal/value"
	"github.com/roach88/livestore/internal/watch"
)

// Engine is an assembled livestore.
type Engine struct {
	cfg      *config.Config
	store    *store.Store
	schema   *config.Schema
	routes   *route.Registry
	bus      *changes.Bus
	workers  *async.Context
	pool     *dispatch.Pool
	watch    *watch.Manager
	resolver *resolver.Resolver

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	clock      clock.Clock
	database   string
	migrations fs.FS
	dir        string
	errHandler async.ErrorHandler
}

// Option configures New.
type Option func(*options)

// WithClock sets the clock used by dispatchers and grace eviction.
// Default: clock.WallClock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithDatabase overrides the configured database path.
func WithDatabase(path string) Option {
	return func(o *options) { o.database = path }
}

// WithMigrations applies the goose migrations under dir of fsys on open,
// instead of the configured migrations directory.
func WithMigrations(fsys fs.FS, dir string) Option {
	return func(o *options) {
		o.migrations = fsys
		o.dir = dir
	}
}

// WithErrorHandler receives errors of background queries.
func WithErrorHandler(h async.ErrorHandler) Option {
	return func(o *options) { o.errHandler = h }
}

// New opens the store, applies migrations and wires every component.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	o := options{clock: clock.WallClock, database: cfg.Database}
	for _, opt := range opts {
		opt(&o)
	}
	if o.migrations == nil && cfg.Migrations != "" {
		o.migrations, o.dir = os.DirFS(cfg.Migrations), "."
	}
	if o.database == "" {
		return nil, errors.New("no database configured")
	}

	schema, err := cfg.Schema()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	routes := route.NewRegistry()
	if _, err := cfg.RegisterRoutes(routes, schema); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	pool, err := cfg.NewPool(o.clock)
	if err != nil {
		return nil, err
	}

	slog.Info("opening database", "path", o.database)
	st, err := store.Open(o.database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if o.migrations != nil {
		if err := st.Migrate(ctx, o.migrations, o.dir); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	workerOpts := []async.Option{}
	if cfg.Workers > 0 {
		workerOpts = append(workerOpts, async.WithWorkers(cfg.Workers))
	}
	if o.errHandler != nil {
		workerOpts = append(workerOpts, async.WithErrorHandler(o.errHandler))
	}
	workers := async.NewContext(workerOpts...)
	bus := changes.NewBus()

	e := &Engine{
		cfg:      cfg,
		store:    st,
		schema:   schema,
		routes:   routes,
		bus:      bus,
		workers:  workers,
		pool:     pool,
		watch:    watch.New(routes, bus, pool, st, workers, watch.WithStrategy(strategy)),
		resolver: resolver.New(routes, st, bus, workers),
	}
	slog.Info("engine ready",
		"routes", len(routes.Routes()),
		"workers", workers.Workers(),
		"strategy", strategy.String())
	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Store returns the underlying store.
func (e *Engine) Store() *store.Store { return e.store }

// Schema returns the typed tables.
func (e *Engine) Schema() *config.Schema { return e.schema }

// Routes returns the route registry.
func (e *Engine) Routes() *route.Registry { return e.routes }

// Bus returns the change bus.
func (e *Engine) Bus() *changes.Bus { return e.bus }

// Workers returns the async worker context.
func (e *Engine) Workers() *async.Context { return e.workers }

// Pool returns the dispatcher pool.
func (e *Engine) Pool() *dispatch.Pool { return e.pool }

// Watch returns the watch manager.
func (e *Engine) Watch() *watch.Manager { return e.watch }

// Resolver returns the resolver facade.
func (e *Engine) Resolver() *resolver.Resolver { return e.resolver }

// TableOf returns the table id resolves to.
func (e *Engine) TableOf(id route.Identifier) (string, error) {
	rt, err := e.routes.Match(id)
	if err != nil {
		return "", err
	}
	return rt.Table(), nil
}

// Rows reads the rows id selects, projected to every declared column of
// its table.
func (e *Engine) Rows(ctx context.Context, id route.Identifier, opts ...resolver.QueryOption) (string, []value.Row, error) {
	table, err := e.TableOf(id)
	if err != nil {
		return "", nil, err
	}
	rows, err := resolver.Query(ctx, e.resolver, id, plan.Rows(e.schema.Columns(table)...), opts...)
	if err != nil {
		return "", nil, err
	}
	return table, rows, nil
}

// Records is Rows converted to JSON-ready maps.
func (e *Engine) Records(ctx context.Context, id route.Identifier, opts ...resolver.QueryOption) ([]map[string]any, error) {
	table, rows, err := e.Rows(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = e.schema.Plain(table, r)
	}
	return out, nil
}

// Run blocks until ctx is done, then closes the engine.
func (e *Engine) Run(ctx context.Context) error {
	<-ctx.Done()
	slog.Info("engine stopping")
	return e.Close()
}

// Close cancels every watch, stops dispatchers and workers, and closes
// the store. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.watch.Close()
		poolErr := e.pool.Close()
		e.workers.Close()
		storeErr := e.store.Close()
		e.closeErr = errors.Join(poolErr, storeErr)
	})
	return e.closeErr
}
