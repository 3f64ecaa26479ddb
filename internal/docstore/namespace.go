package docstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
)

// ErrDuplicateEvent is wrapped by Append when the event_id already exists.
var ErrDuplicateEvent = errors.New("duplicate event_id")

// Namespace is the document collection of one stream.
type Namespace interface {
	// Name returns the stream this namespace belongs to.
	Name() ir.StreamName

	// Append stores rec as a new document.
	Append(ctx context.Context, rec ir.EventRecord) error

	// ScanAll yields every document in insertion order. Iteration stops at
	// the first error.
	ScanAll(ctx context.Context) iter.Seq2[ir.EventRecord, error]

	// Close releases the namespace. Safe to call more than once.
	Close() error
}

// Finder is implemented by namespaces that can evaluate a query natively.
// Results must equal query.ExecuteSeq over ScanAll.
type Finder interface {
	Find(ctx context.Context, q query.Query) ([]ir.EventRecord, error)
}

// Backend selects the storage engine of a namespace.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
)

// ParseBackend resolves a backend name. An empty name selects SQLite.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendBolt:
		return BackendBolt, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want sqlite or bolt)", s)
	}
}

// Extension returns the file extension of the backend's namespace files.
func (b Backend) Extension() string {
	switch b {
	case BackendBolt:
		return ".bolt"
	default:
		return ".sqlite"
	}
}

// Open opens the namespace of stream name under rootDir with this backend.
func (b Backend) Open(rootDir string, name ir.StreamName) (Namespace, error) {
	switch b {
	case BackendSQLite:
		return OpenSQLite(rootDir, name)
	case BackendBolt:
		return OpenBolt(rootDir, name)
	default:
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "unknown backend %q", string(b))
	}
}

// CheckRoot verifies that dir exists and is a directory.
func CheckRoot(dir string) error {
	if dir == "" {
		return fmt.Errorf("root directory is not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("root directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root directory %q is not a directory", dir)
	}
	return nil
}

// namespacePath validates the root and the stream name and returns the
// namespace file path.
func namespacePath(rootDir string, name ir.StreamName, b Backend) (string, error) {
	if err := CheckRoot(rootDir); err != nil {
		return "", ir.WrapError(ir.KindStorageUnavailable, "open", name, err)
	}
	if err := name.Validate(); err != nil {
		return "", ir.WrapError(ir.KindStorageUnavailable, "open", name, err)
	}
	return filepath.Join(rootDir, string(name)+b.Extension()), nil
}
