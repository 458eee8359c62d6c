package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"gopkg.in/tomb.v2"
)

// Registration is something a dispatcher owns on behalf of a subscriber.
// Detach is called on the loop goroutine when the loop exits and must not
// block on the dispatcher.
type Registration interface {
	Detach()
}

// loop is one run of a dispatcher. At most one loop owns a dispatcher.
type loop struct {
	tomb   tomb.Tomb
	queue  *commandQueue
	timers schedule
}

// Dispatcher is a single-goroutine command loop with a registry of
// registrations.
//
// Thread-safety: all methods are safe for concurrent use. Commands run
// one at a time on the loop goroutine.
type Dispatcher struct {
	id    string
	clock clock.Clock

	current atomic.Pointer[loop]

	mu   sync.Mutex
	regs map[string]Registration
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(clk clock.Clock) *Dispatcher {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Dispatcher{
		id:    uuid.Must(uuid.NewV7()).String(),
		clock: clk,
		regs:  make(map[string]Registration),
	}
}

// ID returns the dispatcher's unique id.
func (d *Dispatcher) ID() string { return d.id }

// Start claims the dispatcher's loop slot and starts the loop. Returns
// false, logging a warning, if another loop already owns the slot.
func (d *Dispatcher) Start() bool {
	if cur := d.current.Load(); cur != nil && !cur.tomb.Alive() {
		// A stopped loop is still winding down; let it release the slot.
		<-cur.tomb.Dead()
	}

	l := &loop{queue: newCommandQueue()}
	if !d.current.CompareAndSwap(nil, l) {
		slog.Warn("dispatcher already running, duplicate start ignored", "dispatcher", d.id)
		return false
	}
	l.tomb.Go(func() error { return d.run(l) })
	slog.Debug("dispatcher started", "dispatcher", d.id)
	return true
}

// Stop asks the running loop to exit. Pending commands are dropped. Does
// not wait; use Wait for that.
func (d *Dispatcher) Stop() {
	l := d.current.Load()
	if l == nil {
		return
	}
	l.tomb.Kill(nil)
	l.queue.Close()
}

// Wait blocks until the current loop, if any, has exited.
func (d *Dispatcher) Wait() error {
	l := d.current.Load()
	if l == nil {
		return nil
	}
	return l.tomb.Wait()
}

// Running reports whether a loop is running and accepting commands.
func (d *Dispatcher) Running() bool {
	l := d.current.Load()
	return l != nil && l.tomb.Alive()
}

// Execute posts cmd to the loop. Returns false, dropping cmd, when the loop
// is not running.
func (d *Dispatcher) Execute(cmd func()) bool {
	l := d.current.Load()
	if l == nil || !l.tomb.Alive() {
		return false
	}
	return l.queue.Enqueue(cmd)
}

// Schedule posts cmd to run on the loop after delay. Returns false,
// dropping cmd, when the loop is not running.
func (d *Dispatcher) Schedule(delay time.Duration, cmd func()) bool {
	l := d.current.Load()
	if l == nil || !l.tomb.Alive() {
		return false
	}
	l.timers.add(d.clock.Now().Add(delay), cmd)
	l.queue.Poke()
	return true
}

// Pending returns the number of queued and scheduled commands.
func (d *Dispatcher) Pending() int {
	l := d.current.Load()
	if l == nil {
		return 0
	}
	return l.queue.Len() + l.timers.len()
}

// Register adds reg to the registry and returns its id.
func (d *Dispatcher) Register(reg Registration) string {
	id := uuid.Must(uuid.NewV7()).String()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[id] = reg
	return id
}

// Unregister removes a registration. Returns false if id is unknown.
func (d *Dispatcher) Unregister(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regs[id]; !ok {
		return false
	}
	delete(d.regs, id)
	return true
}

// Len returns the number of registrations.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.regs)
}

func (d *Dispatcher) run(l *loop) error {
	defer d.exit(l)

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		for _, cmd := range l.timers.due(d.clock.Now()) {
			l.queue.Enqueue(cmd)
		}
		for {
			select {
			case <-l.tomb.Dying():
				return tomb.ErrDying
			default:
			}
			cmd, ok := l.queue.TryDequeue()
			if !ok {
				break
			}
			d.invoke(cmd)
		}

		if timer != nil {
			timer.Stop()
			timer = nil
		}
		var timerC <-chan time.Time
		if at, ok := l.timers.next(); ok {
			timer = d.clock.NewTimer(at.Sub(d.clock.Now()))
			timerC = timer.Chan()
		}

		select {
		case <-l.tomb.Dying():
			return tomb.ErrDying
		case <-l.queue.Wait():
		case <-timerC:
		}
	}
}

func (d *Dispatcher) invoke(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatcher command panicked", "dispatcher", d.id, "panic", r)
		}
	}()
	cmd()
}

// exit detaches every registration and releases the loop slot.
func (d *Dispatcher) exit(l *loop) {
	d.mu.Lock()
	regs := make([]Registration, 0, len(d.regs))
	for _, reg := range d.regs {
		regs = append(regs, reg)
	}
	d.mu.Unlock()

	for _, reg := range regs {
		reg.Detach()
	}
	d.current.CompareAndSwap(l, nil)
	slog.Debug("dispatcher stopped", "dispatcher", d.id, "registrations", len(regs))
}
