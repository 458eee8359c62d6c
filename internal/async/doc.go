// Package async provides the result handle returned by every asynchronous
// operation and the worker context that runs blocking executor calls.
//
// A Result completes once, with a value, with "nothing" (the operation was
// a no-op) or with an error. Callbacks registered after completion run
// synchronously on the registering goroutine; callbacks registered before
// run on the completing goroutine, unless pinned to a Queue with
// OnResultOn. The On* methods and the combinators (And, Or, Map, FlatMap)
// return new handles and never change the outcome of their inputs; a
// handle returned by an On* method settles after its callback has run.
package async
