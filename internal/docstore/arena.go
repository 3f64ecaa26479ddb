package docstore

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/eventdoc/internal/ir"
)

// Arena owns the open namespaces under one root directory. Handles are
// opened on first use and shared by stream name.
type Arena struct {
	root    string
	backend Backend

	mu      sync.Mutex
	handles map[ir.StreamName]Namespace
	closed  bool
}

// NewArena creates an arena over rootDir. The root must already exist and be
// a directory; otherwise a ConfigurationError is returned.
func NewArena(rootDir string, backend Backend) (*Arena, error) {
	if err := CheckRoot(rootDir); err != nil {
		return nil, ir.WrapError(ir.KindConfiguration, "arena", "", err)
	}
	if _, err := ParseBackend(string(backend)); err != nil {
		return nil, ir.WrapError(ir.KindConfiguration, "arena", "", err)
	}
	if backend == "" {
		backend = BackendSQLite
	}
	return &Arena{
		root:    rootDir,
		backend: backend,
		handles: make(map[ir.StreamName]Namespace),
	}, nil
}

// Root returns the root directory.
func (a *Arena) Root() string {
	return a.root
}

// Backend returns the backend namespaces are opened with.
func (a *Arena) Backend() Backend {
	return a.backend
}

// Open returns the namespace for name, creating it when absent.
func (a *Arena) Open(name ir.StreamName) (Namespace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "arena is closed")
	}
	if ns, ok := a.handles[name]; ok {
		return ns, nil
	}

	ns, err := a.backend.Open(a.root, name)
	if err != nil {
		return nil, err
	}
	a.handles[name] = ns
	return ns, nil
}

// Exists reports whether a namespace for name is open or present on disk.
// It never creates one.
func (a *Arena) Exists(name ir.StreamName) (bool, error) {
	path, err := namespacePath(a.root, name, a.backend)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	_, open := a.handles[name]
	closed := a.closed
	a.mu.Unlock()

	if closed {
		return false, ir.NewError(ir.KindStorageUnavailable, "open", name, "arena is closed")
	}
	if open {
		return true, nil
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, ir.NewError(ir.KindStorageIO, "open", name, "stat namespace: %w", err)
	}
}

// Streams lists the streams that have a namespace on disk, sorted by name.
func (a *Arena) Streams() ([]ir.StreamName, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, ir.NewError(ir.KindStorageIO, "streams", "", "read root: %w", err)
	}

	ext := a.backend.Extension()
	var names []ir.StreamName
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, ok := strings.CutSuffix(e.Name(), ext)
		if !ok {
			continue
		}
		name := ir.StreamName(base)
		if name.Validate() != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Close closes every open namespace. The arena cannot be used afterwards.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for name, ns := range a.handles {
		if err := ns.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	a.handles = nil
	return errors.Join(errs...)
}
