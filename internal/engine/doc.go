// Package engine assembles a running livestore from configuration.
//
// An Engine owns every long-lived component:
//
//   - the SQLite store and its migrations
//   - the route registry built from the configured tables and routes
//   - the change bus shared by writers and watchers
//   - the async worker context that runs queries off the caller
//   - the dispatcher pool that delivers watch results
//   - the watch manager and the resolver facade
//
// Writes go through Resolver; they notify the bus, which wakes watch
// subscriptions on their dispatchers. Close shuts components down in
// reverse order: watches, dispatchers, workers, then the store.
package engine
