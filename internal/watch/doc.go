// Package watch keeps query results live.
//
// A Subscription binds an observer to a resource identifier. While started
// it listens for changes, re-runs its memoized query on the async worker
// context when a relevant change arrives, and delivers the result on its
// dispatcher loop. At most one query per subscription is in flight;
// changes that arrive meanwhile coalesce into a single follow-up query.
//
// Lifecycle:
//
//	registered -> started <-> stopped -> cancelled
//
// Cancel is terminal and idempotent.
//
// Two strategies decide how listeners are installed. StrategyPerResource
// shares one bus listener among all subscriptions on the same identifier;
// StrategyPerSubscription gives each subscription its own listener.
package watch
