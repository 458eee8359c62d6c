package async

// Pair holds the values of two joined results.
type Pair[A, B any] struct {
	First  A
	Second B
}

// And completes after both a and b. It fails with the first error seen and
// carries a value only when both did.
func And[A, B any](a *Result[A], b *Result[B]) *Result[Pair[A, B]] {
	p := NewPromise[Pair[A, B]]()
	a.subscribe(func(oa outcome[A]) {
		if oa.err != nil {
			p.Fail(oa.err)
			return
		}
		b.subscribe(func(ob outcome[B]) {
			if ob.err != nil {
				p.Fail(ob.err)
				return
			}
			p.settle(outcome[Pair[A, B]]{
				value:   Pair[A, B]{First: oa.value, Second: ob.value},
				present: oa.present && ob.present,
			})
		})
	})
	b.subscribe(func(ob outcome[B]) {
		if ob.err != nil {
			p.Fail(ob.err)
		}
	})
	return p.Result()
}

// Or settles with whichever of a and b completes first. The other's
// outcome is discarded; its work is not cancelled.
func Or[T any](a, b *Result[T]) *Result[T] {
	p := NewPromise[T]()
	a.subscribe(func(out outcome[T]) { p.settle(out) })
	b.subscribe(func(out outcome[T]) { p.settle(out) })
	return p.Result()
}

// Map transforms a present value. Nothing and errors pass through.
func Map[T, U any](r *Result[T], fn func(T) U) *Result[U] {
	p := NewPromise[U]()
	r.subscribe(func(out outcome[T]) {
		switch {
		case out.err != nil:
			p.Fail(out.err)
		case !out.present:
			p.Nothing()
		default:
			p.Succeed(fn(out.value))
		}
	})
	return p.Result()
}

// FlatMap chains a dependent operation on a present value. Nothing and
// errors pass through without calling fn.
func FlatMap[T, U any](r *Result[T], fn func(T) *Result[U]) *Result[U] {
	p := NewPromise[U]()
	r.subscribe(func(out outcome[T]) {
		switch {
		case out.err != nil:
			p.Fail(out.err)
		case !out.present:
			p.Nothing()
		default:
			fn(out.value).subscribe(func(next outcome[U]) { p.settle(next) })
		}
	})
	return p.Result()
}
