package eventstore

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/roach88/eventdoc/internal/codec"
	"github.com/roach88/eventdoc/internal/config"
	"github.com/roach88/eventdoc/internal/docstore"
	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/message"
)

// Store is the operation set of the facade.
type Store interface {
	Create(ctx context.Context, stream *ir.Stream) error
	AppendTo(ctx context.Context, name ir.StreamName, events iter.Seq[ir.Message]) error
	Load(ctx context.Context, name ir.StreamName, minVersion int64) (*ir.Stream, error)
	LoadEvents(ctx context.Context, name ir.StreamName, opts LoadOptions) ([]ir.Message, error)
	Replay(ctx context.Context, name ir.StreamName, opts ReplayOptions) ([]ir.Message, error)
	BeginTransaction(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Hooks run on transaction state changes. Nil hooks are skipped.
type Hooks struct {
	OnBegin    func(ctx context.Context) error
	OnCommit   func(ctx context.Context) error
	OnRollback func(ctx context.Context) error
}

// EventStore implements Store over a docstore.Arena.
type EventStore struct {
	arena     *docstore.Arena
	converter codec.MessageConverter
	factory   codec.MessageFactory
	codec     *codec.Codec
	logger    *slog.Logger
	hooks     Hooks

	txMu sync.Mutex
	inTx bool
}

var _ Store = (*EventStore)(nil)

// Option configures an EventStore.
type Option func(*EventStore)

// WithMessageFactory sets the factory used to rebuild messages on read.
// Default: message.GenericFactory.
func WithMessageFactory(f codec.MessageFactory) Option {
	return func(s *EventStore) {
		s.factory = f
	}
}

// WithMessageConverter sets the converter used on append.
// Default: message.NoOpConverter.
func WithMessageConverter(c codec.MessageConverter) Option {
	return func(s *EventStore) {
		s.converter = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *EventStore) {
		s.logger = l
	}
}

// WithHooks sets the transaction hooks.
func WithHooks(h Hooks) Option {
	return func(s *EventStore) {
		s.hooks = h
	}
}

// New creates an EventStore over arena. The store takes ownership of the
// arena and closes it on Close.
func New(arena *docstore.Arena, opts ...Option) (*EventStore, error) {
	if arena == nil {
		return nil, ir.NewError(ir.KindConfiguration, "new", "", "arena is nil")
	}

	s := &EventStore{
		arena:     arena,
		converter: message.NoOpConverter{},
		factory:   message.GenericFactory{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	c, err := codec.New(s.converter, s.factory)
	if err != nil {
		return nil, err
	}
	s.codec = c
	return s, nil
}

// Open creates an EventStore from configuration. The root directory must
// exist and be a directory.
func Open(cfg config.Config, opts ...Option) (*EventStore, error) {
	arena, err := docstore.NewArena(cfg.Dir, cfg.Backend)
	if err != nil {
		return nil, err
	}
	s, err := New(arena, opts...)
	if err != nil {
		arena.Close()
		return nil, err
	}
	return s, nil
}

// Arena returns the underlying arena.
func (s *EventStore) Arena() *docstore.Arena {
	return s.arena
}

// Create persists every message of stream in order. An empty stream still
// materializes its namespace.
func (s *EventStore) Create(ctx context.Context, stream *ir.Stream) error {
	if stream == nil {
		return ir.NewError(ir.KindInvalidMessage, "create", "", "stream is nil")
	}
	return s.AppendTo(ctx, stream.Name, stream.Events())
}

// AppendTo encodes and appends events in order. Events appended before a
// failure stay persisted.
func (s *EventStore) AppendTo(ctx context.Context, name ir.StreamName, events iter.Seq[ir.Message]) error {
	ns, err := s.arena.Open(name)
	if err != nil {
		return err
	}

	n := 0
	if events != nil {
		for msg := range events {
			rec, err := s.codec.Encode(msg)
			if err != nil {
				s.logger.Debug("append aborted", "op", "append", "stream", string(name), "count", n, "error", err)
				return withStream(err, name)
			}
			if err := ns.Append(ctx, rec); err != nil {
				s.logger.Debug("append aborted", "op", "append", "stream", string(name), "count", n, "error", err)
				return withStream(err, name)
			}
			n++
		}
	}

	s.logger.Debug("events appended", "op", "append", "stream", string(name), "count", n)
	return nil
}

// Close closes every open namespace.
func (s *EventStore) Close() error {
	return s.arena.Close()
}

// withStream fills in the stream of an *ir.Error that has none.
func withStream(err error, name ir.StreamName) error {
	e, ok := err.(*ir.Error)
	if !ok || e.Stream != "" {
		return err
	}
	annotated := *e
	annotated.Stream = name
	return &annotated
}
