package docstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
)

func TestOpenSQLite_Pragmas(t *testing.T) {
	ns, err := OpenSQLite(t.TempDir(), "user_stream")
	require.NoError(t, err)
	defer ns.Close()

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		got, err := ns.pragma(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestOpenSQLite_MigratesLegacyDatabase(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "legacy.sqlite")

	// A database created before indexes were added
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ns, err := OpenSQLite(root, "legacy")
	require.NoError(t, err)
	defer ns.Close()

	conn, err := ns.conn()
	require.NoError(t, err)
	for _, idx := range []string{"idx_events_version", "idx_events_created_at"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		assert.NoError(t, err, "index %s", idx)
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		ns, err := OpenSQLite(root, "user_stream")
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, ns.Close())
	}
}

func TestOpen_MissingRootCreatesNothing(t *testing.T) {
	parent := t.TempDir()
	missing := filepath.Join(parent, "does-not-exist")

	for _, b := range []Backend{BackendSQLite, BackendBolt} {
		_, err := b.Open(missing, "user_stream")
		assert.ErrorIs(t, err, ir.ErrStorageUnavailable, string(b))
	}

	_, err := os.Stat(missing)
	assert.True(t, os.IsNotExist(err), "root must not be created")
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := OpenSQLite(file, "user_stream")
	assert.ErrorIs(t, err, ir.ErrStorageUnavailable)
	_, err = OpenBolt(file, "user_stream")
	assert.ErrorIs(t, err, ir.ErrStorageUnavailable)
}

func TestOpen_InvalidStreamName(t *testing.T) {
	root := t.TempDir()
	for _, name := range []ir.StreamName{"", "../escape", "with space"} {
		_, err := OpenSQLite(root, name)
		assert.ErrorIs(t, err, ir.ErrStorageUnavailable, "name %q", name)
	}
}

// parityRecords interleaves two aggregates with tied timestamps and
// versions so ordering ties are exercised.
func parityRecords() []ir.EventRecord {
	return []ir.EventRecord{
		testRecord("a1", 1, "2016-05-01T12:00:00.000000", ir.Object{"tag": ir.String("person"), "agg": ir.String("a")}),
		testRecord("b1", 1, "2016-05-01T12:00:01.000000", ir.Object{"tag": ir.String("robot"), "agg": ir.String("b"), "n": ir.Int(1)}),
		testRecord("a2", 2, "2016-05-01T12:00:02.000000", ir.Object{"tag": ir.String("person"), "agg": ir.String("a"), "n": ir.String("1")}),
		testRecord("b2", 2, "2016-05-01T12:00:02.000000", ir.Object{"tag": ir.String("robot"), "agg": ir.String("b"), "n": ir.Bool(true)}),
		testRecord("a3", 3, "2016-05-01T12:00:04.000000", ir.Object{"tag": ir.String("person"), "agg": ir.String("a")}),
		testRecord("c1", 1, "2016-05-01T12:00:04.000000", ir.Object{}),
	}
}

func parityQueries() map[string]query.Query {
	return map[string]query.Query{
		"all by version": {OrderBy: query.ByVersion()},
		"replay":         {OrderBy: query.ByReplay()},
		"storage order":  {},
		"min version":    {Filter: query.AtLeast{Field: query.Version, Value: ir.Int(2)}, OrderBy: query.ByVersion()},
		"since":          {Filter: query.AtLeast{Field: query.CreatedAt, Value: ir.String("2016-05-01T12:00:02.000000")}, OrderBy: query.ByReplay()},
		"metadata tag":   {Filter: query.MetadataEquals(ir.Object{"tag": ir.String("person")}), OrderBy: query.ByVersion()},
		"metadata int":   {Filter: query.Equals{Field: query.Metadata("n"), Value: ir.Int(1)}},
		"metadata text":  {Filter: query.Equals{Field: query.Metadata("n"), Value: ir.String("1")}},
		"metadata bool":  {Filter: query.Equals{Field: query.Metadata("n"), Value: ir.Bool(true)}},
		"missing key":    {Filter: query.Equals{Field: query.Metadata("absent"), Value: ir.String("x")}},
		"combined": {
			Filter: query.All(
				query.MetadataEquals(ir.Object{"agg": ir.String("b")}),
				query.AtLeast{Field: query.Version, Value: ir.Int(1)},
				query.AtLeast{Field: query.CreatedAt, Value: ir.String("2016-05-01T12:00:01.000000")},
			),
			OrderBy: query.ByReplay(),
		},
		"desc id":    {OrderBy: []query.SortKey{{Field: query.EventID, Direction: query.Desc}}},
		"event name": {Filter: query.Equals{Field: query.EventName, Value: ir.String("UserCreated")}, OrderBy: []query.SortKey{{Field: query.CreatedAt, Direction: query.Desc}}},
	}
}

func TestFind_MatchesInMemoryEngine(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	sqliteNS, err := OpenSQLite(root, "parity")
	require.NoError(t, err)
	defer sqliteNS.Close()

	boltNS, err := OpenBolt(root, "parity")
	require.NoError(t, err)
	defer boltNS.Close()

	for _, rec := range parityRecords() {
		require.NoError(t, sqliteNS.Append(ctx, rec))
		require.NoError(t, boltNS.Append(ctx, rec))
	}

	for name, q := range parityQueries() {
		t.Run(name, func(t *testing.T) {
			pushed, err := sqliteNS.Find(ctx, q)
			require.NoError(t, err)

			scanned, err := query.ExecuteSeq(boltNS.ScanAll(ctx), q)
			require.NoError(t, err)

			assert.Equal(t, recordIDs(scanned), recordIDs(pushed))
		})
	}
}

func TestFind_InvalidQuery(t *testing.T) {
	ns, err := OpenSQLite(t.TempDir(), "user_stream")
	require.NoError(t, err)
	defer ns.Close()

	require.NoError(t, ns.Append(context.Background(), testRecord("a", 1, "2016-05-01T12:00:00.000000", nil)))

	got, err := ns.Find(context.Background(), query.Query{
		Filter: query.Equals{Field: query.Version, Value: ir.String("1")},
	})
	assert.ErrorIs(t, err, ir.ErrInvalidQuery)
	assert.Empty(t, got)
}
