package eventstore

import (
	"context"
	"time"

	"github.com/roach88/eventdoc/internal/docstore"
	"github.com/roach88/eventdoc/internal/ir"
	"github.com/roach88/eventdoc/internal/query"
)

// LoadOptions filters LoadEvents.
type LoadOptions struct {
	// Metadata entries must all equal the stored metadata, type included.
	Metadata map[string]any

	// MinVersion keeps events with version >= MinVersion. 0 means no bound.
	MinVersion int64
}

// ReplayOptions filters Replay.
type ReplayOptions struct {
	// Since keeps events created at or after Since. The zero time means no
	// bound. Since is compared in UTC.
	Since time.Time

	// Metadata entries must all equal the stored metadata, type included.
	Metadata map[string]any
}

// Load returns the stream's events with version >= minVersion in ascending
// version order. minVersion 0 means no bound.
func (s *EventStore) Load(ctx context.Context, name ir.StreamName, minVersion int64) (*ir.Stream, error) {
	msgs, err := s.LoadEvents(ctx, name, LoadOptions{MinVersion: minVersion})
	if err != nil {
		return nil, err
	}
	return ir.NewStream(name, msgs...), nil
}

// LoadEvents returns the events matching every metadata entry and the
// version bound, in ascending version order.
func (s *EventStore) LoadEvents(ctx context.Context, name ir.StreamName, opts LoadOptions) ([]ir.Message, error) {
	md, err := s.metadataFilter(name, opts.Metadata)
	if err != nil {
		return nil, err
	}

	var minVersion query.Predicate
	if opts.MinVersion > 0 {
		minVersion = query.AtLeast{Field: query.Version, Value: ir.Int(opts.MinVersion)}
	}

	return s.read(ctx, "load", name, query.Query{
		Filter:  query.All(md, minVersion),
		OrderBy: query.ByVersion(),
	})
}

// Replay returns the events created at or after opts.Since that match every
// metadata entry, ordered by creation time and then version. Events of
// different aggregates interleave.
func (s *EventStore) Replay(ctx context.Context, name ir.StreamName, opts ReplayOptions) ([]ir.Message, error) {
	md, err := s.metadataFilter(name, opts.Metadata)
	if err != nil {
		return nil, err
	}

	var since query.Predicate
	if !opts.Since.IsZero() {
		since = query.AtLeast{Field: query.CreatedAt, Value: ir.String(ir.FormatTimestamp(opts.Since))}
	}

	return s.read(ctx, "replay", name, query.Query{
		Filter:  query.All(since, md),
		OrderBy: query.ByReplay(),
	})
}

func (s *EventStore) metadataFilter(name ir.StreamName, md map[string]any) (query.Predicate, error) {
	obj, err := ir.ObjectFromGo(md)
	if err != nil {
		return nil, ir.NewError(ir.KindInvalidQuery, "validate", name, "metadata filter: %w", err)
	}
	return query.MetadataEquals(obj), nil
}

// read validates q, runs it against the stream's namespace and decodes the
// records. A stream without a namespace yields no events and is not
// created.
func (s *EventStore) read(ctx context.Context, op string, name ir.StreamName, q query.Query) ([]ir.Message, error) {
	if err := query.Validate(q); err != nil {
		return nil, withStream(err, name)
	}

	exists, err := s.arena.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.Debug("stream has no namespace", "op", op, "stream", string(name))
		return []ir.Message{}, nil
	}

	ns, err := s.arena.Open(name)
	if err != nil {
		return nil, err
	}

	var records []ir.EventRecord
	if f, ok := ns.(docstore.Finder); ok {
		records, err = f.Find(ctx, q)
	} else {
		records, err = query.ExecuteSeq(ns.ScanAll(ctx), q)
	}
	if err != nil {
		return nil, withStream(err, name)
	}

	msgs := make([]ir.Message, 0, len(records))
	for _, rec := range records {
		msg, err := s.codec.Decode(rec)
		if err != nil {
			return nil, withStream(err, name)
		}
		msgs = append(msgs, msg)
	}

	s.logger.Debug("events read", "op", op, "stream", string(name), "count", len(msgs))
	return msgs, nil
}
