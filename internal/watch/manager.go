package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/livestore/internal/async"
	"github.com/roach88/livestore/internal/changes"
	"github.com/roach88/livestore/internal/dispatch"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/store"
)

// Strategy selects how change listeners are installed.
type Strategy int

const (
	// StrategyPerResource multiplexes every subscription on one identifier
	// through a single bus listener.
	StrategyPerResource Strategy = iota

	// StrategyPerSubscription installs one listener per started subscription.
	StrategyPerSubscription
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyPerResource:
		return "per-resource"
	case StrategyPerSubscription:
		return "per-subscription"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses the configuration spelling of a strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "per-resource":
		return StrategyPerResource, nil
	case "per-subscription":
		return StrategyPerSubscription, nil
	}
	return 0, fmt.Errorf("unknown watch strategy %q", s)
}

// Querier runs a SELECT. *store.Store satisfies it.
type Querier interface {
	Query(ctx context.Context, sel queryir.Select) (*store.Rows, error)
}

// resource is the shared listener for one identifier.
type resource struct {
	handle changes.Handle
	subs   map[*Subscription]struct{}
}

// Manager owns subscriptions and their listeners.
//
// Thread-safety: all methods are safe for concurrent use. The per-resource
// listener registry is guarded by the manager lock.
type Manager struct {
	routes   *route.Registry
	bus      *changes.Bus
	pool     *dispatch.Pool
	exec     Querier
	workers  *async.Context
	strategy Strategy

	mu        sync.Mutex
	closed    bool
	subs      map[*Subscription]struct{}
	resources map[route.Identifier]*resource
}

// Option configures a Manager.
type Option func(*Manager)

// WithStrategy selects the listener strategy. Defaults to StrategyPerResource.
func WithStrategy(s Strategy) Option {
	return func(m *Manager) { m.strategy = s }
}

// New creates a manager.
func New(routes *route.Registry, bus *changes.Bus, pool *dispatch.Pool, exec Querier, workers *async.Context, opts ...Option) *Manager {
	m := &Manager{
		routes:    routes,
		bus:       bus,
		pool:      pool,
		exec:      exec,
		workers:   workers,
		subs:      make(map[*Subscription]struct{}),
		resources: make(map[route.Identifier]*resource),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Strategy returns the listener strategy.
func (m *Manager) Strategy() Strategy { return m.strategy }

// Len returns the number of live (not cancelled) subscriptions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Listeners returns the number of shared per-resource listeners.
func (m *Manager) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resources)
}

// Register creates a subscription delivering read's result for id to
// observer. The subscription starts in StateRegistered; call Start.
//
// Configuration errors (unknown route, bad identifier) fail here.
func Register[R any](m *Manager, id route.Identifier, read plan.ReadPlan[R], observer func(R)) (*Subscription, error) {
	id = id.Normalize()
	rt, cond, err := m.routes.Condition(id)
	if err != nil {
		return nil, err
	}
	sel := plan.Select(rt.Table(), read, cond, plan.Page{Order: rt.Order()})

	s := &Subscription{
		id:      id,
		table:   rt.Table(),
		manager: m,
		state:   StateRegistered,
	}
	s.query = func(ctx context.Context) (func(), error) {
		rows, err := m.exec.Query(ctx, sel)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		v, err := read.Collect(rows)
		if err != nil {
			return nil, err
		}
		return func() { observer(v) }, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errs.New(errs.CodeClosed, "watch manager closed")
	}
	m.subs[s] = struct{}{}
	m.mu.Unlock()

	d, regID, err := m.pool.Acquire(string(id), s)
	if err != nil {
		m.forget(s)
		return nil, err
	}
	s.dispatcher, s.regID = d, regID

	if m.strategy == StrategyPerResource {
		m.attach(s)
	}
	return s, nil
}

// Watch registers and starts a subscription.
func Watch[R any](m *Manager, id route.Identifier, read plan.ReadPlan[R], observer func(R)) (*Subscription, error) {
	s, err := Register(m, id, read, observer)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		s.Cancel()
		return nil, err
	}
	return s, nil
}

// attach adds s to its identifier's shared listener, installing the
// listener on first use.
func (m *Manager) attach(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.resources[s.id]
	if !ok {
		res = &resource{subs: make(map[*Subscription]struct{})}
		res.handle = m.bus.Register(s.id, true, m.fanout(res))
		m.resources[s.id] = res
	}
	res.subs[s] = struct{}{}
}

// detach removes s from its shared listener, removing the listener with
// the last subscription.
func (m *Manager) detach(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.resources[s.id]
	if !ok {
		return
	}
	delete(res.subs, s)
	if len(res.subs) == 0 {
		m.bus.Unregister(res.handle)
		delete(m.resources, s.id)
	}
}

func (m *Manager) fanout(res *resource) changes.Listener {
	return func(c changes.Change) {
		m.mu.Lock()
		subs := make([]*Subscription, 0, len(res.subs))
		for s := range res.subs {
			subs = append(subs, s)
		}
		m.mu.Unlock()

		for _, s := range subs {
			s.onChange(c)
		}
	}
}

func (m *Manager) forget(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, s)
}

// Close cancels every subscription. Further registrations fail.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}
