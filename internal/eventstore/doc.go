// Package eventstore is the stream store facade: it turns domain messages
// into records through a converter, persists them in per-stream document
// namespaces and reads them back through a factory.
//
// Reads are queries over one stream. Load and LoadEvents order by version;
// Replay orders by creation time, then version, across all aggregates of
// the stream. Namespaces that can evaluate queries natively (SQLite) get
// the query pushed down; others are scanned and filtered in memory.
//
// Writes are not batched: AppendTo stores events one by one, and a failure
// at event N leaves events 1..N-1 persisted. BeginTransaction, Commit and
// Rollback only track state and run hooks; they never buffer or undo writes.
package eventstore
