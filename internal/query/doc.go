// Package query is the closed predicate language used to select and order
// event records within one stream.
//
// A Query is a filter (a Predicate tree) plus a list of sort keys. Fields
// come from a fixed enum: the top-level record fields and metadata entries
// addressed by key. There are no free-form paths, no OR and no functions.
//
// The same Query has two executors: the in-memory engine in this package
// (Filter, OrderBy, Execute) and the SQL compiler in package querysql. Both
// must return the same records in the same order for every valid query.
//
// Predicate semantics:
//   - Equals compares type and value exactly. String("1") never equals
//     Int(1). A record lacking a metadata key never matches.
//   - AtLeast is only defined on version (Int) and created_at (String in
//     the canonical timestamp layout, compared lexicographically).
//   - And matches when all children match. An empty And matches everything.
//
// Ordering is stable: records that tie on every key keep their storage order.
package query
