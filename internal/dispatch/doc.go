// Package dispatch provides single-goroutine command loops (dispatchers)
// and the pool that hands them out to subscriptions.
//
// A Dispatcher runs one loop at a time. Commands posted with Execute run
// in post order; commands posted with Schedule run once their fire time
// passes, ordered by fire time. Nothing is queued while the loop is not
// running: Execute and Schedule return false and drop the command.
//
// A Pool assigns dispatchers according to a Policy and evicts a dispatcher
// a grace period after its last registration is released, provided it is
// still empty when the grace period ends.
package dispatch
