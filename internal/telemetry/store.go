package telemetry

import (
	"context"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/eventdoc/internal/eventstore"
	"github.com/roach88/eventdoc/internal/ir"
)

var _ eventstore.Store = (*TracingStore)(nil)

// TracingStore wraps a Store and records a span and metrics per call.
type TracingStore struct {
	next   eventstore.Store
	tracer trace.Tracer
	ins    instruments
}

// NewTracingStore wraps next.
func NewTracingStore(next eventstore.Store, opts ...Option) (*TracingStore, error) {
	if next == nil {
		return nil, ir.NewError(ir.KindConfiguration, "telemetry", "", "store is nil")
	}
	c := newConfig(opts)
	ins, err := newInstruments(c.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, ir.WrapError(ir.KindConfiguration, "telemetry", "", err)
	}
	return &TracingStore{
		next:   next,
		tracer: c.tracerProvider.Tracer(instrumentationName),
		ins:    ins,
	}, nil
}

func (t *TracingStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	attrs = append([]attribute.KeyValue{AttrOperation.String(op)}, attrs...)
	ctx, span := t.tracer.Start(ctx, "EventStore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, span, time.Now()
}

// finish records the outcome on span and ends it.
func (t *TracingStore) finish(ctx context.Context, span trace.Span, op string, started time.Time, err error) {
	opAttr := metric.WithAttributes(AttrOperation.String(op))
	t.ins.duration.Record(ctx, float64(time.Since(started).Milliseconds()), opAttr)
	if err != nil {
		t.ins.errors.Add(ctx, 1, opAttr)
		if kind := ir.KindOf(err); kind != "" {
			span.SetAttributes(AttrErrorKind.String(string(kind)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *TracingStore) Create(ctx context.Context, stream *ir.Stream) (err error) {
	var attrs []attribute.KeyValue
	if stream != nil {
		attrs = append(attrs, AttrStreamName.String(string(stream.Name)), AttrEventCount.Int(stream.Len()))
	}
	ctx, span, started := t.start(ctx, "Create", attrs...)
	defer func() { t.finish(ctx, span, "Create", started, err) }()

	if err = t.next.Create(ctx, stream); err == nil && stream != nil {
		t.ins.appended.Add(ctx, int64(stream.Len()))
	}
	return err
}

func (t *TracingStore) AppendTo(ctx context.Context, name ir.StreamName, events iter.Seq[ir.Message]) (err error) {
	ctx, span, started := t.start(ctx, "AppendTo", AttrStreamName.String(string(name)))
	defer func() { t.finish(ctx, span, "AppendTo", started, err) }()

	// n counts events the inner store accepted; yield returns false when
	// it stops at a failing event.
	n := 0
	var counted iter.Seq[ir.Message]
	if events != nil {
		counted = func(yield func(ir.Message) bool) {
			for msg := range events {
				if !yield(msg) {
					return
				}
				n++
			}
		}
	}

	err = t.next.AppendTo(ctx, name, counted)
	span.SetAttributes(AttrEventCount.Int(n))
	t.ins.appended.Add(ctx, int64(n))
	return err
}

func (t *TracingStore) Load(ctx context.Context, name ir.StreamName, minVersion int64) (_ *ir.Stream, err error) {
	ctx, span, started := t.start(ctx, "Load",
		AttrStreamName.String(string(name)),
		AttrMinVersion.Int64(minVersion),
	)
	defer func() { t.finish(ctx, span, "Load", started, err) }()

	stream, err := t.next.Load(ctx, name, minVersion)
	if err == nil {
		t.counted(ctx, span, stream.Len())
	}
	return stream, err
}

func (t *TracingStore) LoadEvents(ctx context.Context, name ir.StreamName, opts eventstore.LoadOptions) (_ []ir.Message, err error) {
	ctx, span, started := t.start(ctx, "LoadEvents",
		AttrStreamName.String(string(name)),
		AttrMinVersion.Int64(opts.MinVersion),
	)
	defer func() { t.finish(ctx, span, "LoadEvents", started, err) }()

	msgs, err := t.next.LoadEvents(ctx, name, opts)
	if err == nil {
		t.counted(ctx, span, len(msgs))
	}
	return msgs, err
}

func (t *TracingStore) Replay(ctx context.Context, name ir.StreamName, opts eventstore.ReplayOptions) (_ []ir.Message, err error) {
	attrs := []attribute.KeyValue{AttrStreamName.String(string(name))}
	if !opts.Since.IsZero() {
		attrs = append(attrs, AttrSince.String(ir.FormatTimestamp(opts.Since)))
	}
	ctx, span, started := t.start(ctx, "Replay", attrs...)
	defer func() { t.finish(ctx, span, "Replay", started, err) }()

	msgs, err := t.next.Replay(ctx, name, opts)
	if err == nil {
		t.counted(ctx, span, len(msgs))
	}
	return msgs, err
}

func (t *TracingStore) counted(ctx context.Context, span trace.Span, n int) {
	span.SetAttributes(AttrResultCount.Int(n))
	t.ins.read.Add(ctx, int64(n))
}

func (t *TracingStore) BeginTransaction(ctx context.Context) (err error) {
	ctx, span, started := t.start(ctx, "BeginTransaction")
	defer func() { t.finish(ctx, span, "BeginTransaction", started, err) }()
	return t.next.BeginTransaction(ctx)
}

func (t *TracingStore) Commit(ctx context.Context) (err error) {
	ctx, span, started := t.start(ctx, "Commit")
	defer func() { t.finish(ctx, span, "Commit", started, err) }()
	return t.next.Commit(ctx)
}

func (t *TracingStore) Rollback(ctx context.Context) (err error) {
	ctx, span, started := t.start(ctx, "Rollback")
	defer func() { t.finish(ctx, span, "Rollback", started, err) }()
	return t.next.Rollback(ctx)
}

// Close closes the wrapped store. No span is recorded.
func (t *TracingStore) Close() error {
	return t.next.Close()
}
