// Package telemetry decorates an event store with OpenTelemetry spans and
// metrics. Every operation gets a client span named EventStore.<Op>.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/roach88/eventdoc"

// Attribute keys set on spans and measurements.
const (
	AttrOperation   = attribute.Key("eventdoc.operation")
	AttrStreamName  = attribute.Key("eventdoc.stream.name")
	AttrEventCount  = attribute.Key("eventdoc.events.count")
	AttrResultCount = attribute.Key("eventdoc.query.result_count")
	AttrMinVersion  = attribute.Key("eventdoc.query.min_version")
	AttrSince       = attribute.Key("eventdoc.query.since")
	AttrErrorKind   = attribute.Key("eventdoc.error.kind")
)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a TracingStore.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

// WithTracerProvider sets the tracer provider. Default: otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(c *config) {
		c.tracerProvider = tp
	})
}

// WithMeterProvider sets the meter provider. Default: otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return optionFunc(func(c *config) {
		c.meterProvider = mp
	})
}

type instruments struct {
	duration metric.Float64Histogram
	appended metric.Int64Counter
	read     metric.Int64Counter
	errors   metric.Int64Counter
}

func newInstruments(meter metric.Meter) (instruments, error) {
	var (
		ins instruments
		err error
	)
	ins.duration, err = meter.Float64Histogram(
		"eventdoc.eventstore.duration",
		metric.WithDescription("Event store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return ins, err
	}
	ins.appended, err = meter.Int64Counter(
		"eventdoc.events.appended",
		metric.WithDescription("Total number of events appended"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return ins, err
	}
	ins.read, err = meter.Int64Counter(
		"eventdoc.events.read",
		metric.WithDescription("Total number of events returned by reads"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return ins, err
	}
	ins.errors, err = meter.Int64Counter(
		"eventdoc.eventstore.errors",
		metric.WithDescription("Total number of failed event store operations"),
		metric.WithUnit("{error}"),
	)
	return ins, err
}

func newConfig(opts []Option) config {
	c := config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt.apply(&c)
	}
	return c
}
