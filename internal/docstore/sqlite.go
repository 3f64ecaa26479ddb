package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
	"github.com/roach88/eventdoc/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added indexes on version and created_at
const currentSchemaVersion = 1

const selectColumns = "event_id, version, event_name, payload, metadata, created_at"

// SQLite is a namespace backed by one SQLite database file.
type SQLite struct {
	name ir.StreamName
	path string

	mu sync.Mutex
	db *sql.DB
}

var (
	_ Namespace = (*SQLite)(nil)
	_ Finder    = (*SQLite)(nil)
)

// OpenSQLite creates or opens the namespace <rootDir>/<name>.sqlite.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
func OpenSQLite(rootDir string, name ir.StreamName) (*SQLite, error) {
	path, err := namespacePath(rootDir, name, BackendSQLite)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to apply schema: %w", err)
	}

	return &SQLite{name: name, path: path, db: db}, nil
}

// Name implements Namespace.
func (s *SQLite) Name() ir.StreamName {
	return s.name
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close implements Namespace.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLite) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, errors.New("namespace is closed")
	}
	return s.db, nil
}

// Append implements Namespace. A duplicate event_id fails with
// ErrDuplicateEvent; the stored row is not touched.
func (s *SQLite) Append(ctx context.Context, rec ir.EventRecord) error {
	db, err := s.conn()
	if err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", s.name, err)
	}

	payload, metadata, err := marshalDocument(rec)
	if err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", s.name, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO events
		(event_id, version, event_name, payload, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.EventID,
		rec.Version,
		rec.EventName,
		payload,
		metadata,
		rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ir.NewError(ir.KindStorageIO, "append", s.name, "event %s: %w", rec.EventID, ErrDuplicateEvent)
		}
		return ir.NewError(ir.KindStorageIO, "append", s.name, "write event %s: %w", rec.EventID, err)
	}
	return nil
}

// ScanAll implements Namespace.
func (s *SQLite) ScanAll(ctx context.Context) iter.Seq2[ir.EventRecord, error] {
	return func(yield func(ir.EventRecord, error) bool) {
		db, err := s.conn()
		if err != nil {
			yield(ir.EventRecord{}, ir.WrapError(ir.KindStorageIO, "scan", s.name, err))
			return
		}

		records, err := s.query(ctx, db, "SELECT "+selectColumns+" FROM events ORDER BY seq ASC")
		if err != nil {
			yield(ir.EventRecord{}, err)
			return
		}
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Find implements Finder by compiling q to SQL.
func (s *SQLite) Find(ctx context.Context, q query.Query) ([]ir.EventRecord, error) {
	where, orderBy, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}

	db, err := s.conn()
	if err != nil {
		return nil, ir.WrapError(ir.KindStorageIO, "find", s.name, err)
	}

	stmt := fmt.Sprintf("SELECT %s FROM events WHERE %s ORDER BY %s", selectColumns, where, orderBy)
	return s.query(ctx, db, stmt, params...)
}

// query runs stmt and decodes every row. Rows are fully read before
// returning so callers never hold the single connection.
func (s *SQLite) query(ctx context.Context, db *sql.DB, stmt string, args ...any) ([]ir.EventRecord, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, ir.NewError(ir.KindStorageIO, "scan", s.name, "query events: %w", err)
	}
	defer rows.Close()

	records := []ir.EventRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, ir.WrapError(ir.KindStorageIO, "scan", s.name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ir.NewError(ir.KindStorageIO, "scan", s.name, "iterate events: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (ir.EventRecord, error) {
	var (
		rec               ir.EventRecord
		payload, metadata string
	)
	if err := rows.Scan(&rec.EventID, &rec.Version, &rec.EventName, &payload, &metadata, &rec.CreatedAt); err != nil {
		return ir.EventRecord{}, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if rec.Payload, err = unmarshalObject(payload); err != nil {
		return ir.EventRecord{}, fmt.Errorf("event %s: payload: %w", rec.EventID, err)
	}
	if rec.Metadata, err = unmarshalObject(metadata); err != nil {
		return ir.EventRecord{}, fmt.Errorf("event %s: metadata: %w", rec.EventID, err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the indexes backing load and replay filters.
func migrateToV1(db *sql.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_version ON events(version, seq)",
		"CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at, version, seq)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// pragma returns the current value of a pragma. Used by tests.
func (s *SQLite) pragma(name string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
