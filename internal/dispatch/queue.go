package dispatch

import (
	"sync"
)

// commandQueue is a thread-safe FIFO queue of commands.
//
// The queue is unbounded so posting never blocks the caller. It uses a
// channel for signaling so the loop can wait on it alongside its tomb and
// timer.
type commandQueue struct {
	mu     sync.Mutex
	cmds   []func()
	closed bool
	signal chan struct{} // Signals command availability (buffered, size 1)
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		cmds:   make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(cmd func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.cmds = append(q.cmds, cmd)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Poke wakes the loop without adding a command.
func (q *commandQueue) Poke() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue removes the front command without blocking.
func (q *commandQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil, false
	}

	cmd := q.cmds[0]

	// Nil out the slot so the closure can be collected.
	q.cmds[0] = nil

	if len(q.cmds) == 1 {
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}

	return cmd, true
}

// Wait returns a channel that signals when commands may be available.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Close rejects further commands and drops pending ones.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	clear(q.cmds)
	q.cmds = q.cmds[:0]
	close(q.signal) // Wakes the loop
}
