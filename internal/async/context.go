package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/livestore/internal/errs"
)

// ErrorHandler receives task failures. It runs on the worker goroutine.
type ErrorHandler func(error)

// Context runs blocking work on a bounded set of worker goroutines.
//
// Thread-safety: all methods are safe for concurrent use.
type Context struct {
	sem     *semaphore.Weighted
	workers int64
	onError ErrorHandler

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	arena arena
}

// Option configures a Context.
type Option func(*Context)

// WithWorkers bounds concurrent tasks. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.workers = int64(n)
		}
	}
}

// WithErrorHandler registers a handler for task failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Context) { c.onError = h }
}

// NewContext creates a worker context.
func NewContext(opts ...Option) *Context {
	c := &Context{workers: int64(runtime.GOMAXPROCS(0))}
	for _, opt := range opts {
		opt(c)
	}
	c.sem = semaphore.NewWeighted(c.workers)
	c.base, c.cancel = context.WithCancel(context.Background())
	return c
}

// Workers returns the concurrency bound.
func (c *Context) Workers() int {
	return int(c.workers)
}

// Close stops accepting work, fails queued tasks and waits for running
// ones to return.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Go schedules fn on a worker and returns its result handle. fn reports
// "nothing" with present=false. Failures,
// including panics, settle the handle with an execution error and are
// reported to the error handler.
func Go[T any](c *Context, fn func(ctx context.Context) (v T, present bool, err error)) *Result[T] {
	p := NewPromise[T]()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		p.Fail(errs.New(errs.CodeClosed, "async context closed"))
		return p.Result()
	}
	c.wg.Add(1)
	c.mu.Unlock()

	t := c.arena.lease()
	t.run = func(ctx context.Context) {
		v, present, err := invoke(ctx, fn)
		if err != nil {
			err = errs.Execution(err, "task failed")
			c.report(err)
			p.Fail(err)
			return
		}
		p.settle(outcome[T]{value: v, present: present})
	}
	t.fail = func(err error) { p.Fail(err) }

	go c.work(t)
	return p.Result()
}

func (c *Context) work(t *task) {
	defer c.wg.Done()
	defer c.arena.release(t)

	if err := c.sem.Acquire(c.base, 1); err != nil {
		t.fail(errs.New(errs.CodeClosed, "async context closed"))
		return
	}
	defer c.sem.Release(1)
	t.run(c.base)
}

func (c *Context) report(err error) {
	if c.onError == nil {
		slog.Debug("task failed without error handler", "error", err)
		return
	}
	c.onError(err)
}

func invoke[T any](ctx context.Context, fn func(context.Context) (T, bool, error)) (v T, present bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// task is an arena slot describing one scheduled unit of work.
type task struct {
	run  func(ctx context.Context)
	fail func(error)
}

// arena recycles task slots between dispatches. Slots are leased for the
// lifetime of one task and returned cleared.
type arena struct {
	pool sync.Pool
}

func (a *arena) lease() *task {
	if t, ok := a.pool.Get().(*task); ok {
		return t
	}
	return &task{}
}

func (a *arena) release(t *task) {
	*t = task{}
	a.pool.Put(t)
}
