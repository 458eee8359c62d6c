// Package queryir provides the statement intermediate representation that
// sits between the typed condition builder and the SQL compiler.
//
// ARCHITECTURE:
//
//	[column / route / plan] → [queryir] → [querysql] → executor
//
// Statements and predicates are sealed interfaces (marker methods), so
// the compiler can switch over them exhaustively and no other package can
// smuggle in a node the compiler does not understand.
//
// Statement types:
//   - Select: projection, filter, ordering, limit and offset
//   - Exists: does any row match a filter
//   - Insert: one row of column/value assignments
//   - Update: assignments applied to filtered rows
//   - Delete: remove filtered rows
//
// Predicate types:
//   - Compare: column <op> value
//   - In: column IN (values...)
//   - IsNull: column IS [NOT] NULL
//   - And / Or / Not: boolean composition
//
// Values are value.Value cells and are ALWAYS bound as parameters by the
// compiler. Column and table names are validated as plain identifiers.
//
// CONDITION ALGEBRA:
//
// AndOf is associative and flattens nested conjunctions; True (the empty
// And) is its identity element, so AndOf(True, p) == p. OrOf flattens the
// same way. A nil Predicate means "no filter".
package queryir
