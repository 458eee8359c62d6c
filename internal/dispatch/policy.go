package dispatch

import (
	"slices"
	"sync"

	"github.com/juju/clock"
)

// Policy decides which dispatcher serves a resource key.
//
// Get returns the dispatcher for key, creating it if needed. Stop retires
// d; it returns false when the policy keeps d alive (e.g. a pool floor).
// Implementations are called with the owning Pool's lock held.
type Policy interface {
	Get(key string) *Dispatcher
	Stop(d *Dispatcher) bool
	Dispatchers() []*Dispatcher
}

// PerObserver gives every subscriber its own dispatcher. Empty
// dispatchers, running or retired, are reused before a new one is made.
type PerObserver struct {
	clock clock.Clock

	mu   sync.Mutex
	all  []*Dispatcher
	idle map[*Dispatcher]bool
}

// NewPerObserver creates a per-observer policy.
func NewPerObserver(clk clock.Clock) *PerObserver {
	return &PerObserver{clock: clk, idle: make(map[*Dispatcher]bool)}
}

// Get implements Policy. key is ignored.
func (p *PerObserver) Get(string) *Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, d := range p.all {
		if d.Len() == 0 {
			delete(p.idle, d)
			return d
		}
	}
	d := NewDispatcher(p.clock)
	p.all = append(p.all, d)
	return d
}

// Stop implements Policy. A retired dispatcher returns to the idle set.
func (p *PerObserver) Stop(d *Dispatcher) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !slices.Contains(p.all, d) || d.Len() > 0 {
		return false
	}
	d.Stop()
	p.idle[d] = true
	return true
}

// Idle returns the number of retired dispatchers awaiting reuse.
func (p *PerObserver) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Dispatchers implements Policy.
func (p *PerObserver) Dispatchers() []*Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.all)
}

// PerKey gives every resource key its own dispatcher.
type PerKey struct {
	clock clock.Clock

	mu    sync.Mutex
	byKey map[string]*Dispatcher
}

// NewPerKey creates a per-key policy.
func NewPerKey(clk clock.Clock) *PerKey {
	return &PerKey{clock: clk, byKey: make(map[string]*Dispatcher)}
}

// Get implements Policy.
func (p *PerKey) Get(key string) *Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.byKey[key]; ok {
		return d
	}
	d := NewDispatcher(p.clock)
	p.byKey[key] = d
	return d
}

// Stop implements Policy. The key's next Get creates a fresh dispatcher.
func (p *PerKey) Stop(d *Dispatcher) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, cur := range p.byKey {
		if cur == d {
			delete(p.byKey, key)
			d.Stop()
			return true
		}
	}
	return false
}

// Dispatchers implements Policy.
func (p *PerKey) Dispatchers() []*Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Dispatcher, 0, len(p.byKey))
	for _, d := range p.byKey {
		out = append(out, d)
	}
	return out
}

// Bounded keeps between min and max dispatchers, each serving up to
// capacity registrations before another is preferred.
type Bounded struct {
	clock              clock.Clock
	min, max, capacity int

	mu  sync.Mutex
	all []*Dispatcher
}

// NewBounded creates a bounded policy. max is raised to at least
// max(min, 1); a non-positive capacity means unlimited.
func NewBounded(clk clock.Clock, min, max, capacity int) *Bounded {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	if max < 1 {
		max = 1
	}
	return &Bounded{clock: clk, min: min, max: max, capacity: capacity}
}

func (p *Bounded) full(d *Dispatcher) bool {
	return p.capacity > 0 && d.Len() >= p.capacity
}

// Get implements Policy. The least-loaded non-full dispatcher is reused; a
// new one is created only while below max and every existing dispatcher is
// busy. At max with every dispatcher full, the least loaded one overflows.
func (p *Bounded) Get(string) *Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	var best *Dispatcher
	bestLoad := 0
	anyEmpty := false
	for _, d := range p.all {
		n := d.Len()
		if n == 0 {
			anyEmpty = true
		}
		if p.full(d) {
			continue
		}
		if best == nil || n < bestLoad {
			best, bestLoad = d, n
		}
	}
	if len(p.all) < p.max && !anyEmpty {
		d := NewDispatcher(p.clock)
		p.all = append(p.all, d)
		return d
	}
	if best != nil {
		return best
	}
	for _, d := range p.all {
		if best == nil || d.Len() < bestLoad {
			best, bestLoad = d, d.Len()
		}
	}
	return best
}

// Stop implements Policy. At or below the floor it is a no-op.
func (p *Bounded) Stop(d *Dispatcher) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.all, d)
	if i < 0 || len(p.all) <= p.min {
		return false
	}
	p.all = slices.Delete(p.all, i, i+1)
	d.Stop()
	return true
}

// Dispatchers implements Policy.
func (p *Bounded) Dispatchers() []*Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.all)
}
