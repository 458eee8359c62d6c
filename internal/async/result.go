package async

import (
	"context"
	"sync"
)

// Queue accepts commands for deferred execution, e.g. a dispatcher loop.
// Execute returns false when the command was dropped.
type Queue interface {
	Execute(cmd func()) bool
}

type outcome[T any] struct {
	value   T
	present bool
	err     error
}

// Result is a one-shot completion handle. The On* methods and the
// combinators return new handles; a handle's outcome never changes once
// settled.
type Result[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	out       outcome[T]
	completed bool
	callbacks []func(outcome[T])
}

func newResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// Done returns a Result already completed with v.
func Done[T any](v T) *Result[T] {
	r := newResult[T]()
	r.complete(outcome[T]{value: v, present: true})
	return r
}

// Nothing returns a Result already completed without a value.
func Nothing[T any]() *Result[T] {
	r := newResult[T]()
	r.complete(outcome[T]{})
	return r
}

// Failed returns a Result already completed with err.
func Failed[T any](err error) *Result[T] {
	r := newResult[T]()
	r.complete(outcome[T]{err: err})
	return r
}

// complete settles r. Returns false if r was already settled.
func (r *Result[T]) complete(out outcome[T]) bool {
	r.mu.Lock()
	if r.completed {
		r.mu.Unlock()
		return false
	}
	r.completed = true
	r.out = out
	cbs := r.callbacks
	r.callbacks = nil
	close(r.done)
	r.mu.Unlock()

	for _, cb := range cbs {
		cb(out)
	}
	return true
}

func (r *Result[T]) subscribe(cb func(outcome[T])) {
	r.mu.Lock()
	if !r.completed {
		r.callbacks = append(r.callbacks, cb)
		r.mu.Unlock()
		return
	}
	out := r.out
	r.mu.Unlock()
	cb(out)
}

// then returns a handle settled with r's outcome after cb has run on it.
// r itself is left as it was.
func (r *Result[T]) then(cb func(outcome[T])) *Result[T] {
	next := newResult[T]()
	r.subscribe(func(out outcome[T]) {
		cb(out)
		next.complete(out)
	})
	return next
}

// OnResult calls cb on success. present is false when the operation
// produced nothing. The returned handle settles like r once cb has run.
func (r *Result[T]) OnResult(cb func(v T, present bool)) *Result[T] {
	return r.then(func(out outcome[T]) {
		if out.err == nil {
			cb(out.value, out.present)
		}
	})
}

// OnResultOn is OnResult with delivery posted to q. If q drops the
// command the callback never runs and the returned handle settles at once.
func (r *Result[T]) OnResultOn(q Queue, cb func(v T, present bool)) *Result[T] {
	next := newResult[T]()
	r.subscribe(func(out outcome[T]) {
		if out.err != nil {
			next.complete(out)
			return
		}
		posted := q.Execute(func() {
			cb(out.value, out.present)
			next.complete(out)
		})
		if !posted {
			next.complete(out)
		}
	})
	return next
}

// OnSomethingChanged calls cb when the operation produced a value.
func (r *Result[T]) OnSomethingChanged(cb func(v T)) *Result[T] {
	return r.OnResult(func(v T, present bool) {
		if present {
			cb(v)
		}
	})
}

// OnNothing calls cb when the operation succeeded without a value.
func (r *Result[T]) OnNothing(cb func()) *Result[T] {
	return r.OnResult(func(_ T, present bool) {
		if !present {
			cb()
		}
	})
}

// OnError calls cb when the operation failed.
func (r *Result[T]) OnError(cb func(error)) *Result[T] {
	return r.then(func(out outcome[T]) {
		if out.err != nil {
			cb(out.err)
		}
	})
}

// Wait blocks until r completes or ctx is done.
func (r *Result[T]) Wait(ctx context.Context) (v T, present bool, err error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
	r.mu.Lock()
	out := r.out
	r.mu.Unlock()
	return out.value, out.present, out.err
}

// Completed reports whether r has settled.
func (r *Result[T]) Completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Promise is the producing side of a Result.
type Promise[T any] struct {
	r *Result[T]
}

// NewPromise creates an unsettled promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{r: newResult[T]()}
}

// Result returns the handle settled by p.
func (p *Promise[T]) Result() *Result[T] { return p.r }

// Succeed settles with v. Returns false if already settled.
func (p *Promise[T]) Succeed(v T) bool {
	return p.r.complete(outcome[T]{value: v, present: true})
}

// Nothing settles without a value. Returns false if already settled.
func (p *Promise[T]) Nothing() bool {
	return p.r.complete(outcome[T]{})
}

// Fail settles with err. Returns false if already settled.
func (p *Promise[T]) Fail(err error) bool {
	return p.r.complete(outcome[T]{err: err})
}

func (p *Promise[T]) settle(out outcome[T]) bool {
	return p.r.complete(out)
}
