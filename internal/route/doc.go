// Package route maps hierarchical resource identifiers to routes.
//
// A route binds a path pattern to a backing table, a default ordering and
// insert defaults. Patterns chain literal segments and argument segments;
// each argument segment names a non-nullable column and a comparison
// operator, and contributes one predicate to the route's condition.
//
//	tasks := route.Path("tasks")                   // "/tasks"
//	task  := route.Path("tasks").IsEqualTo(taskID) // "/tasks/#"
//
// Identifiers round-trip: for a route with k arguments,
// ParseArguments(CreateIdentifier(a1..ak)) returns a1..ak unchanged.
//
// Matching is positional. Among routes whose shape fits an identifier the
// most specific wins: at the first position where two candidates differ,
// a literal beats an argument. Remaining ties go to the earlier
// registration.
package route
