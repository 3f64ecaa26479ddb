package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/roach88/eventdoc/internal/ir"
)

// namespaceSuite runs the same behaviour checks against every backend.
type namespaceSuite struct {
	suite.Suite
	backend Backend
	root    string
	ns      Namespace
}

func (s *namespaceSuite) SetupTest() {
	s.root = s.T().TempDir()
	ns, err := s.backend.Open(s.root, "user_stream")
	s.Require().NoError(err)
	s.ns = ns
}

func (s *namespaceSuite) TearDownTest() {
	s.Require().NoError(s.ns.Close())
}

func (s *namespaceSuite) appendAll(records ...ir.EventRecord) {
	for _, rec := range records {
		s.Require().NoError(s.ns.Append(context.Background(), rec))
	}
}

func (s *namespaceSuite) scan() []ir.EventRecord {
	var out []ir.EventRecord
	for rec, err := range s.ns.ScanAll(context.Background()) {
		s.Require().NoError(err)
		out = append(out, rec)
	}
	return out
}

func (s *namespaceSuite) TestOpen_CreatesFile() {
	_, err := os.Stat(filepath.Join(s.root, "user_stream"+s.backend.Extension()))
	s.NoError(err)
	s.Equal(ir.StreamName("user_stream"), s.ns.Name())
}

func (s *namespaceSuite) TestScanAll_Empty() {
	s.Empty(s.scan())
}

func (s *namespaceSuite) TestAppend_ScanInInsertionOrder() {
	// Event ids deliberately out of lexical order
	s.appendAll(
		testRecord("c", 1, "2016-05-01T12:00:00.000000", nil),
		testRecord("a", 2, "2016-05-01T12:00:01.000000", nil),
		testRecord("b", 3, "2016-05-01T12:00:02.000000", nil),
	)

	got := s.scan()
	s.Equal([]string{"c", "a", "b"}, recordIDs(got))
}

func (s *namespaceSuite) TestAppend_PreservesDocument() {
	in := ir.EventRecord{
		EventID:   "6a1e6d41-8c4b-4a0c-9b1e-3c5a1f7f2d10",
		Version:   1,
		EventName: "UserCreated",
		Payload: ir.Object{
			"name":    ir.String("Max <Mustermann>"),
			"big":     ir.Int(9007199254740993),
			"tags":    ir.Array{ir.String("a"), ir.Null{}},
			"address": ir.Object{"city": ir.String("Köln")},
		},
		Metadata:  ir.Object{"tag": ir.String("person"), "n": ir.Int(1), "ok": ir.Bool(true)},
		CreatedAt: "2016-05-01T12:00:00.123456",
	}
	s.appendAll(in)

	got := s.scan()
	s.Require().Len(got, 1)
	s.Equal(in.EventID, got[0].EventID)
	s.Equal(in.Version, got[0].Version)
	s.Equal(in.EventName, got[0].EventName)
	s.Equal(in.CreatedAt, got[0].CreatedAt)
	s.True(ir.Equal(in.Payload, got[0].Payload), "payload %#v", got[0].Payload)
	s.True(ir.Equal(in.Metadata, got[0].Metadata), "metadata %#v", got[0].Metadata)
}

func (s *namespaceSuite) TestAppend_NilMapsStoredAsEmpty() {
	s.appendAll(ir.EventRecord{EventID: "x", Version: 1, EventName: "Ping", CreatedAt: "2016-05-01T12:00:00.000000"})

	got := s.scan()
	s.Require().Len(got, 1)
	s.NotNil(got[0].Payload)
	s.NotNil(got[0].Metadata)
}

func (s *namespaceSuite) TestAppend_DuplicateEventIDRejected() {
	first := testRecord("dup", 1, "2016-05-01T12:00:00.000000", ir.Object{"tag": ir.String("first")})
	s.appendAll(first)

	second := testRecord("dup", 2, "2016-05-01T12:00:05.000000", ir.Object{"tag": ir.String("second")})
	err := s.ns.Append(context.Background(), second)
	s.Require().Error(err)
	s.ErrorIs(err, ErrDuplicateEvent)
	s.ErrorIs(err, ir.ErrStorageIO)

	got := s.scan()
	s.Require().Len(got, 1)
	s.Equal(int64(1), got[0].Version, "stored record must be unchanged")
	s.Equal(ir.String("first"), got[0].Metadata["tag"])
}

func (s *namespaceSuite) TestReopen_KeepsDocuments() {
	s.appendAll(testRecord("a", 1, "2016-05-01T12:00:00.000000", nil))
	s.Require().NoError(s.ns.Close())

	ns, err := s.backend.Open(s.root, "user_stream")
	s.Require().NoError(err)
	s.ns = ns

	s.appendAll(testRecord("b", 2, "2016-05-01T12:00:01.000000", nil))
	s.Equal([]string{"a", "b"}, recordIDs(s.scan()))
}

func (s *namespaceSuite) TestClose_Idempotent() {
	s.NoError(s.ns.Close())
	s.NoError(s.ns.Close())

	err := s.ns.Append(context.Background(), testRecord("a", 1, "2016-05-01T12:00:00.000000", nil))
	s.ErrorIs(err, ir.ErrStorageIO)

	for _, err := range s.ns.ScanAll(context.Background()) {
		s.ErrorIs(err, ir.ErrStorageIO)
	}
}

func (s *namespaceSuite) TestScanAll_EarlyBreak() {
	s.appendAll(
		testRecord("a", 1, "2016-05-01T12:00:00.000000", nil),
		testRecord("b", 2, "2016-05-01T12:00:01.000000", nil),
	)

	n := 0
	for _, err := range s.ns.ScanAll(context.Background()) {
		s.Require().NoError(err)
		n++
		break
	}
	s.Equal(1, n)

	// The namespace must stay usable after an abandoned scan
	s.appendAll(testRecord("c", 3, "2016-05-01T12:00:02.000000", nil))
	s.Len(s.scan(), 3)
}

func (s *namespaceSuite) TestAppend_Concurrent() {
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.ns.Append(context.Background(),
				testRecord(fmt.Sprintf("ev-%02d", i), int64(i+1), "2016-05-01T12:00:00.000000", nil))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Len(s.scan(), n)
}

func (s *namespaceSuite) TestAppend_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.ns.Append(ctx, testRecord("a", 1, "2016-05-01T12:00:00.000000", nil))
	s.Error(err)
	s.Empty(s.scan())
}

func TestSQLiteNamespace(t *testing.T) {
	suite.Run(t, &namespaceSuite{backend: BackendSQLite})
}

func TestBoltNamespace(t *testing.T) {
	suite.Run(t, &namespaceSuite{backend: BackendBolt})
}

func testRecord(id string, version int64, createdAt string, md ir.Object) ir.EventRecord {
	return ir.EventRecord{
		EventID:   id,
		Version:   version,
		EventName: "UserCreated",
		Payload:   ir.Object{"name": ir.String("Max Mustermann")},
		Metadata:  md,
		CreatedAt: createdAt,
	}
}

func recordIDs(records []ir.EventRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.EventID
	}
	return out
}
