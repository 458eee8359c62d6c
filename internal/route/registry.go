package route

import (
	"log/slog"
	"sync"

	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/queryir"
)

// Registry holds registered routes and resolves identifiers against them.
//
// Thread-safety: all methods are safe for concurrent use. Registration
// normally happens once at startup; matching happens on every call.
type Registry struct {
	mu        sync.RWMutex
	routes    []*Route
	byPattern map[string]*Route
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPattern: make(map[string]*Route)}
}

// Register binds pattern p to table. Fails on pattern construction errors,
// invalid table names and duplicate patterns.
func (reg *Registry) Register(table string, p *Pattern, opts ...Option) (*Route, error) {
	if p == nil {
		return nil, errs.New(errs.CodeInvalidArgument, "nil pattern")
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	if !queryir.ValidIdentifier(table) {
		return nil, errs.New(errs.CodeInvalidArgument, "invalid table name %q", table)
	}

	r := &Route{table: table, pattern: p}
	for _, opt := range opts {
		opt(r)
	}
	if r.name == "" {
		r.name = p.String()
	}
	for _, o := range r.order {
		if !queryir.ValidIdentifier(o.Column) {
			return nil, errs.New(errs.CodeInvalidArgument, "invalid order column %q", o.Column)
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := p.String()
	if existing, ok := reg.byPattern[key]; ok {
		return nil, errs.New(errs.CodeDuplicateRoute,
			"pattern %s already registered for table %q", key, existing.table)
	}
	r.seq = len(reg.routes)
	reg.routes = append(reg.routes, r)
	reg.byPattern[key] = r

	slog.Debug("route registered", "pattern", key, "table", table, "name", r.name)
	return r, nil
}

// Match resolves id to the most specific route.
func (reg *Registry) Match(id Identifier) (*Route, error) {
	r, _, err := reg.Resolve(id)
	return r, err
}

// Resolve is Match that also returns the parsed arguments.
func (reg *Registry) Resolve(id Identifier) (*Route, []any, error) {
	segs := id.Segments()

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var (
		best     *Route
		bestArgs []any
	)
	for _, r := range reg.routes {
		args, err := r.parse(segs)
		if err != nil {
			continue
		}
		if best == nil || r.moreSpecific(best) {
			best, bestArgs = r, args
		}
	}
	if best == nil {
		return nil, nil, errs.New(errs.CodeUnknownRoute, "no route matches").WithIdentifier(string(id))
	}
	return best, bestArgs, nil
}

// Condition resolves id and returns its route and row predicate.
func (reg *Registry) Condition(id Identifier) (*Route, queryir.Predicate, error) {
	r, args, err := reg.Resolve(id)
	if err != nil {
		return nil, nil, err
	}
	cond, err := r.conditionFor(args)
	if err != nil {
		return nil, nil, err
	}
	return r, cond, nil
}

// Routes returns the registered routes in registration order.
func (reg *Registry) Routes() []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return append([]*Route(nil), reg.routes...)
}

// Lookup returns the route registered under a wildcard pattern string.
func (reg *Registry) Lookup(pattern string) (*Route, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.byPattern[pattern]
	return r, ok
}
