package changes

import (
	"sync"

	"github.com/roach88/livestore/internal/route"
)

// Notifier records that a write touched an identifier.
type Notifier interface {
	NotifyChange(id route.Identifier)
}

// Immediate forwards every report to its sink synchronously, once per call.
type Immediate struct {
	sink Sink
}

// NewImmediate creates an Immediate notifier over sink.
func NewImmediate(sink Sink) *Immediate {
	return &Immediate{sink: sink}
}

// NotifyChange implements Notifier.
func (n *Immediate) NotifyChange(id route.Identifier) {
	n.sink.Notify(id)
}

// Delayed buffers reports until SendAll. Duplicate identifiers collapse
// into one notification. Nothing is forwarded unless SendAll is called.
type Delayed struct {
	sink Sink

	mu      sync.Mutex
	pending map[route.Identifier]struct{}
}

// NewDelayed creates a Delayed notifier over sink.
func NewDelayed(sink Sink) *Delayed {
	return &Delayed{sink: sink, pending: make(map[route.Identifier]struct{})}
}

// NotifyChange implements Notifier.
func (n *Delayed) NotifyChange(id route.Identifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[id.Normalize()] = struct{}{}
}

// Pending returns the number of buffered identifiers.
func (n *Delayed) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// SendAll forwards every buffered identifier and clears the buffer.
func (n *Delayed) SendAll() {
	n.mu.Lock()
	batch := n.pending
	n.pending = make(map[route.Identifier]struct{})
	n.mu.Unlock()

	for id := range batch {
		n.sink.Notify(id)
	}
}

// Discard drops every buffered identifier.
func (n *Delayed) Discard() {
	n.mu.Lock()
	defer n.mu.Unlock()
	clear(n.pending)
}
