// Package docstore persists event records in one embedded document
// namespace per stream.
//
// A namespace lives at <root>/<stream>.<ext> and holds one document per
// event with the fields event_id, version, event_name, payload, metadata
// and created_at. Two backends share the Namespace interface:
//
//   - sqlite: a SQLite file with WAL journaling. Queries are pushed down
//     as SQL (it implements Finder).
//   - bolt: a bbolt file. Queries run in memory over a full scan.
//
// Both backends scan in insertion order, so the in-memory query engine and
// the SQL pushdown break ties the same way.
//
// Records are immutable: appending a second record with an existing
// event_id fails with ErrDuplicateEvent and leaves the stored record as it
// was. Each Append is atomic on its own; there is no batch atomicity.
//
// Namespaces are created lazily on first open. Opening under a root that
// does not exist, or is not a directory, fails with StorageUnavailableError
// and creates nothing.
package docstore
