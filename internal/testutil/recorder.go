package testutil

import (
	"sync"
	"testing"
	"time"
)

// Recorder collects values delivered to an observer callback.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
	signal chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{signal: make(chan struct{}, 1)}
}

// Observe records v. Pass it as the observer callback.
func (r *Recorder[T]) Observe(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Values returns a copy of the recorded values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// Last returns the most recent value.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		var zero T
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// WaitFor blocks until at least n values were recorded, failing the test
// after timeout.
func (r *Recorder[T]) WaitFor(t testing.TB, n int, timeout time.Duration) []T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if vs := r.Values(); len(vs) >= n {
			return vs
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("recorded %d values, want %d", r.Len(), n)
			return nil
		}
	}
}

// Quiet asserts no value beyond the first n is recorded within d.
func (r *Recorder[T]) Quiet(t testing.TB, n int, d time.Duration) {
	t.Helper()
	time.Sleep(d)
	if got := r.Len(); got != n {
		t.Fatalf("recorded %d values, want exactly %d", got, n)
	}
}
