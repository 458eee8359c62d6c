// Package store is the SQLite statement executor.
//
// Statements arrive as queryir values, are compiled by querysql into
// ?-parameterized SQL and run against a single-connection database/sql
// pool. Writes report "absent" rather than a zero result when they did
// nothing: an insert without values, or an update/delete that matched no
// rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schemas are applied with goose migrations from an fs.FS (see Migrate).
//
// The pool holds one connection. A *Rows returned by Query owns that
// connection until it is closed, so callers must drain or Close it before
// issuing another statement.
package store
