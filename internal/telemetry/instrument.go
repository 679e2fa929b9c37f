package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument bundles a tracer with the counters and duration histogram for
// one family of operations (e.g. "relm.jira"). Instruments are resolved from
// the global providers, so with telemetry disabled every call is a no-op.
type Instrument struct {
	prefix string
	meter  metric.Meter
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// NewInstrument creates an Instrument whose metrics are named <prefix>.operations,
// <prefix>.operation.duration and <prefix>.errors.
func NewInstrument(scope, prefix string) *Instrument {
	m := Meter(scope)
	ops, _ := m.Int64Counter(prefix+".operations",
		metric.WithDescription("Total operations executed"),
	)
	dur, _ := m.Float64Histogram(prefix+".operation.duration",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter(prefix+".errors",
		metric.WithDescription("Total operation errors"),
	)
	return &Instrument{
		prefix: prefix,
		meter:  m,
		tracer: Tracer(scope),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// Span is an operation in flight, closed with Done.
type Span struct {
	inst  *Instrument
	span  trace.Span
	start time.Time
	attrs []attribute.KeyValue
}

// Start opens a span named spanName and counts the operation.
func (i *Instrument) Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := i.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	i.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, &Span{inst: i, span: span, start: time.Now(), attrs: attrs}
}

// SetAttributes adds attributes to the span and to the duration and error
// metrics recorded by Done.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
	s.attrs = append(s.attrs, attrs...)
}

// Done ends the span, records duration and the optional error.
func (s *Span) Done(ctx context.Context, err error) {
	ms := float64(time.Since(s.start).Milliseconds())
	s.inst.dur.Record(ctx, ms, metric.WithAttributes(s.attrs...))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.inst.errs.Add(ctx, 1, metric.WithAttributes(s.attrs...))
	}
	s.span.End()
}

// Counter returns an Int64Counter from the instrument's scope, named
// <prefix>.<name>.
func (i *Instrument) Counter(name, description string) metric.Int64Counter {
	c, _ := i.meter.Int64Counter(i.prefix+"."+name,
		metric.WithDescription(description),
	)
	return c
}
