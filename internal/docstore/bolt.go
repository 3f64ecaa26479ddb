package docstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/roach88/eventdoc/internal/ir"
)

var (
	documentsBucket = []byte("documents")
	eventIDsBucket  = []byte("event_ids")
	byteOrdering    = binary.BigEndian
)

// boltOpenTimeout bounds the wait for the file lock held by another process.
const boltOpenTimeout = 5 * time.Second

// Bolt is a namespace backed by one bbolt file.
//
// The documents bucket maps a big-endian insertion sequence to the record's
// JSON document, so cursor order is insertion order. The event_ids bucket
// maps event_id to its sequence key and enforces uniqueness.
type Bolt struct {
	name ir.StreamName
	path string

	mu sync.Mutex
	db *bbolt.DB
}

var _ Namespace = (*Bolt)(nil)

// OpenBolt creates or opens the namespace <rootDir>/<name>.bolt.
func OpenBolt(rootDir string, name ir.StreamName) (*Bolt, error) {
	path, err := namespacePath(rootDir, name, BackendBolt)
	if err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(documentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(eventIDsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, ir.NewError(ir.KindStorageUnavailable, "open", name, "failed to create buckets: %w", err)
	}

	return &Bolt{name: name, path: path, db: db}, nil
}

// Name implements Namespace.
func (b *Bolt) Name() ir.StreamName {
	return b.name
}

// Path returns the database file path.
func (b *Bolt) Path() string {
	return b.path
}

// Close implements Namespace.
func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *Bolt) conn() (*bbolt.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil, errors.New("namespace is closed")
	}
	return b.db, nil
}

// Append implements Namespace. The document and its id index entry are
// written in one transaction.
func (b *Bolt) Append(ctx context.Context, rec ir.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", b.name, err)
	}
	db, err := b.conn()
	if err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", b.name, err)
	}

	data, err := encodeDocument(rec)
	if err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", b.name, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(documentsBucket)
		ids := tx.Bucket(eventIDsBucket)
		id := []byte(rec.EventID)

		if ids.Get(id) != nil {
			return fmt.Errorf("event %s: %w", rec.EventID, ErrDuplicateEvent)
		}

		seq, err := docs.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		byteOrdering.PutUint64(key, seq)

		if err := docs.Put(key, data); err != nil {
			return err
		}
		return ids.Put(id, key)
	})
	if err != nil {
		return ir.WrapError(ir.KindStorageIO, "append", b.name, err)
	}
	return nil
}

// ScanAll implements Namespace. Documents are read in one read transaction
// and yielded after it ends, so callers may append while iterating.
func (b *Bolt) ScanAll(ctx context.Context) iter.Seq2[ir.EventRecord, error] {
	return func(yield func(ir.EventRecord, error) bool) {
		records, err := b.readAll(ctx)
		if err != nil {
			yield(ir.EventRecord{}, ir.WrapError(ir.KindStorageIO, "scan", b.name, err))
			return
		}
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (b *Bolt) readAll(ctx context.Context) ([]ir.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	records := []ir.EventRecord{}
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeDocument(v)
			if err != nil {
				return fmt.Errorf("document %d: %w", byteOrdering.Uint64(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
