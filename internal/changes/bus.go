package changes

import (
	"log/slog"
	"sync"

	"github.com/roach88/livestore/internal/route"
)

// Change is one change report. An empty ID means "unspecified".
type Change struct {
	ID route.Identifier
}

// Listener receives change reports.
type Listener func(Change)

// Handle identifies a registered listener.
type Handle uint64

type listener struct {
	id          route.Identifier
	descendants bool
	fn          Listener
}

func (l *listener) observes(c route.Identifier) bool {
	switch {
	case c.Unspecified():
		return true
	case c == l.id:
		return true
	case l.descendants && l.id.IsAncestorOf(c):
		return true
	case c.IsAncestorOf(l.id):
		return true
	}
	return false
}

// Sink is anything that accepts change reports. *Bus satisfies it.
type Sink interface {
	Notify(id route.Identifier)
}

// Bus fans change reports out to registered listeners.
//
// Listeners are invoked synchronously on the notifying goroutine, outside
// the bus lock, so a listener may register or unregister listeners.
type Bus struct {
	mu        sync.Mutex
	next      Handle
	listeners map[Handle]*listener
}

var _ Sink = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Handle]*listener)}
}

// Register installs fn for changes on id.
func (b *Bus) Register(id route.Identifier, descendants bool, fn Listener) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	h := b.next
	b.listeners[h] = &listener{id: id.Normalize(), descendants: descendants, fn: fn}
	return h
}

// Unregister removes a listener. Returns false if h was not registered.
func (b *Bus) Unregister(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.listeners[h]; !ok {
		return false
	}
	delete(b.listeners, h)
	return true
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Notify delivers a change on id to every observing listener.
func (b *Bus) Notify(id route.Identifier) {
	id = id.Normalize()

	b.mu.Lock()
	targets := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		if l.observes(id) {
			targets = append(targets, l.fn)
		}
	}
	b.mu.Unlock()

	slog.Debug("change notified", "identifier", string(id), "listeners", len(targets))
	c := Change{ID: id}
	for _, fn := range targets {
		fn(c)
	}
}
