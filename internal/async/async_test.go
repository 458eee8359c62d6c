package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/errs"
)

func waitFor[T any](t *testing.T, r *Result[T]) (T, bool, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, ok, err := r.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "result never completed")
	return v, ok, err
}

// inlineQueue runs commands synchronously and records how many it saw.
type inlineQueue struct {
	n    atomic.Int32
	drop bool
}

func (q *inlineQueue) Execute(cmd func()) bool {
	q.n.Add(1)
	if q.drop {
		return false
	}
	cmd()
	return true
}

func TestResult_CallbacksAfterCompletionRunSynchronously(t *testing.T) {
	r := Done(42)

	var got int
	r.OnResult(func(v int, present bool) {
		assert.True(t, present)
		got = v
	})
	assert.Equal(t, 42, got)
}

func TestResult_Variants(t *testing.T) {
	var changed, nothing, failed int
	register := func(r *Result[int]) {
		r.OnSomethingChanged(func(int) { changed++ }).
			OnNothing(func() { nothing++ }).
			OnError(func(error) { failed++ })
	}

	register(Done(1))
	register(Nothing[int]())
	register(Failed[int](errors.New("x")))

	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, nothing)
	assert.Equal(t, 1, failed)
}

func TestResult_OnResultOnQueue(t *testing.T) {
	q := &inlineQueue{}
	var got int
	Done(7).OnResultOn(q, func(v int, _ bool) { got = v })
	assert.Equal(t, 7, got)
	assert.Equal(t, int32(1), q.n.Load())

	dropped := &inlineQueue{drop: true}
	called := false
	Done(7).OnResultOn(dropped, func(int, bool) { called = true })
	assert.False(t, called)
}

func TestResult_CallbacksReturnDerivedHandles(t *testing.T) {
	p := NewPromise[int]()
	orig := p.Result()

	var order []string
	next := orig.OnResult(func(int, bool) { order = append(order, "first") })
	last := next.OnSomethingChanged(func(int) { order = append(order, "second") })
	assert.NotSame(t, orig, next)
	assert.NotSame(t, next, last)
	assert.False(t, last.Completed())

	require.True(t, p.Succeed(3))
	v, ok, err := waitFor(t, last)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"first", "second"}, order)

	v, ok, err = waitFor(t, orig)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	boom := errors.New("boom")
	_, _, err = waitFor(t, Failed[int](boom).OnError(func(error) {}))
	assert.ErrorIs(t, err, boom)

	dropped := Done(5).OnResultOn(&inlineQueue{drop: true}, func(int, bool) {})
	v, _, err = waitFor(t, dropped)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestPromise_SettlesOnce(t *testing.T) {
	p := NewPromise[string]()
	assert.False(t, p.Result().Completed())
	assert.True(t, p.Succeed("a"))
	assert.False(t, p.Fail(errors.New("late")))
	assert.False(t, p.Nothing())

	v, ok, err := waitFor(t, p.Result())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestWait_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewPromise[int]().Result().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnd_WaitsForBoth(t *testing.T) {
	a, b := NewPromise[int](), NewPromise[string]()
	joined := And(a.Result(), b.Result())

	a.Succeed(1)
	assert.False(t, joined.Completed())
	b.Succeed("x")

	v, ok, err := waitFor(t, joined)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Pair[int, string]{1, "x"}, v)
}

func TestAnd_NothingAndErrors(t *testing.T) {
	_, ok, err := waitFor(t, And(Done(1), Nothing[int]()))
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	_, _, err = waitFor(t, And(NewPromise[int]().Result(), Failed[int](boom)))
	assert.ErrorIs(t, err, boom, "an error settles without waiting for the other side")
}

func TestOr_FirstWins(t *testing.T) {
	a, b := NewPromise[int](), NewPromise[int]()
	raced := Or(a.Result(), b.Result())

	b.Succeed(2)
	a.Succeed(1)

	v, _, err := waitFor(t, raced)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.True(t, a.Result().Completed(), "the loser still completes")
}

func TestMapAndFlatMap(t *testing.T) {
	src := Done(20)
	doubled := Map(src, func(v int) int { return v * 2 })
	v, _, err := waitFor(t, doubled)
	require.NoError(t, err)
	assert.Equal(t, 40, v)

	orig, _, _ := waitFor(t, src)
	assert.Equal(t, 20, orig, "combinators do not mutate their input")

	_, ok, err := waitFor(t, Map(Nothing[int](), func(v int) int { return v }))
	require.NoError(t, err)
	assert.False(t, ok)

	chained := FlatMap(src, func(v int) *Result[string] {
		if v > 10 {
			return Done("big")
		}
		return Nothing[string]()
	})
	s, _, err := waitFor(t, chained)
	require.NoError(t, err)
	assert.Equal(t, "big", s)

	called := false
	_, _, err = waitFor(t, FlatMap(Failed[int](errors.New("x")), func(int) *Result[int] {
		called = true
		return Done(0)
	}))
	assert.Error(t, err)
	assert.False(t, called)
}

func TestGo_Success(t *testing.T) {
	c := NewContext(WithWorkers(2))
	defer c.Close()

	r := Go(c, func(context.Context) (string, bool, error) { return "ok", true, nil })
	v, ok, err := waitFor(t, r)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestGo_ErrorsReachHandlerAndHandle(t *testing.T) {
	var (
		mu      sync.Mutex
		handled []error
	)
	c := NewContext(WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, err)
	}))
	defer c.Close()

	boom := errors.New("boom")
	_, _, err := waitFor(t, Go(c, func(context.Context) (int, bool, error) { return 0, false, boom }))
	assert.ErrorIs(t, err, boom)
	assert.True(t, errs.IsExecution(err))

	_, _, err = waitFor(t, Go(c, func(context.Context) (int, bool, error) { panic("kaboom") }))
	assert.True(t, errs.IsExecution(err))
	assert.Contains(t, err.Error(), "kaboom")

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, handled, 2)
}

func TestGo_WithoutHandlerOnlyTheHandleSeesErrors(t *testing.T) {
	c := NewContext()
	defer c.Close()

	_, _, err := waitFor(t, Go(c, func(context.Context) (int, bool, error) { return 0, false, errors.New("x") }))
	assert.Error(t, err)
}

func TestGo_BoundsConcurrency(t *testing.T) {
	c := NewContext(WithWorkers(2))
	defer c.Close()

	var running, peak atomic.Int32
	release := make(chan struct{})
	results := make([]*Result[int], 6)
	for i := range results {
		results[i] = Go(c, func(context.Context) (int, bool, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return 0, true, nil
		})
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	for _, r := range results {
		_, _, err := waitFor(t, r)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestGo_AfterClose(t *testing.T) {
	c := NewContext()
	c.Close()
	c.Close()

	_, _, err := waitFor(t, Go(c, func(context.Context) (int, bool, error) { return 1, true, nil }))
	assert.True(t, errs.HasCode(err, errs.CodeClosed))
}

func TestArena_ReleaseClearsSlot(t *testing.T) {
	var a arena
	s := a.lease()
	s.run = func(context.Context) {}
	a.release(s)
	assert.Nil(t, s.run)
	assert.Nil(t, s.fail)
}
