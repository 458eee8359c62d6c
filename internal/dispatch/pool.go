package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/livestore/internal/errs"
)

// DefaultGrace is how long an empty dispatcher survives before eviction.
const DefaultGrace = 60 * time.Second

// Pool hands out dispatchers according to a Policy and evicts them after
// a grace period once empty.
//
// Thread-safety: all methods are safe for concurrent use. Every
// read-modify-write of the dispatcher set happens under the pool lock.
type Pool struct {
	policy Policy
	clock  clock.Clock
	grace  time.Duration

	mu       sync.Mutex
	closed   bool
	evicting map[*Dispatcher]clock.Timer
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithGrace sets the eviction grace period.
func WithGrace(d time.Duration) PoolOption {
	return func(p *Pool) { p.grace = d }
}

// WithClock sets the clock used for grace timers.
func WithClock(clk clock.Clock) PoolOption {
	return func(p *Pool) { p.clock = clk }
}

// NewPool creates a pool over policy.
func NewPool(policy Policy, opts ...PoolOption) *Pool {
	p := &Pool{
		policy:   policy,
		clock:    clock.WallClock,
		grace:    DefaultGrace,
		evicting: make(map[*Dispatcher]clock.Timer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Grace returns the eviction grace period.
func (p *Pool) Grace() time.Duration { return p.grace }

// Get returns the dispatcher serving key, started. A pending eviction of
// that dispatcher is cancelled.
func (p *Pool) Get(key string) (*Dispatcher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errs.New(errs.CodeClosed, "dispatcher pool closed")
	}
	d := p.policy.Get(key)
	p.cancelEviction(d)
	p.ensureRunning(d)
	return d, nil
}

// Acquire picks a dispatcher for key, starts it if needed and registers
// reg on it. Choosing and registering is atomic with respect to other
// Acquire and Release calls.
func (p *Pool) Acquire(key string, reg Registration) (*Dispatcher, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, "", errs.New(errs.CodeClosed, "dispatcher pool closed")
	}
	d := p.policy.Get(key)
	p.cancelEviction(d)
	p.ensureRunning(d)
	return d, d.Register(reg), nil
}

// cancelEviction stops d's grace timer. p.mu must be held.
func (p *Pool) cancelEviction(d *Dispatcher) {
	if t, ok := p.evicting[d]; ok {
		t.Stop()
		delete(p.evicting, d)
	}
}

func (p *Pool) ensureRunning(d *Dispatcher) {
	if !d.Running() {
		d.Start()
	}
}

// Release unregisters id from d. If d is left empty, an eviction check is
// scheduled after the grace period; d is stopped then only if it is still
// empty.
func (p *Pool) Release(d *Dispatcher, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !d.Unregister(id) || d.Len() > 0 || p.closed {
		return
	}
	if _, ok := p.evicting[d]; ok {
		return
	}
	p.evicting[d] = p.clock.AfterFunc(p.grace, func() { p.evict(d) })
}

func (p *Pool) evict(d *Dispatcher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.evicting, d)
	if p.closed || d.Len() > 0 {
		return
	}
	if p.policy.Stop(d) {
		slog.Debug("dispatcher evicted", "dispatcher", d.ID())
	}
}

// Stop retires d through the policy. Returns false if the policy kept it.
func (p *Pool) Stop(d *Dispatcher) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy.Stop(d)
}

// Dispatchers returns the dispatchers the policy currently holds.
func (p *Pool) Dispatchers() []*Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy.Dispatchers()
}

// Close stops every dispatcher and waits for their loops to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for d, t := range p.evicting {
		t.Stop()
		delete(p.evicting, d)
	}
	all := p.policy.Dispatchers()
	p.mu.Unlock()

	var g errgroup.Group
	for _, d := range all {
		d := d
		g.Go(func() error {
			d.Stop()
			return d.Wait()
		})
	}
	return g.Wait()
}
