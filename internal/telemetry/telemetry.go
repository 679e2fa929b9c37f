// Package telemetry wires OpenTelemetry traces and metrics for a relm run.
//
// Nothing is exported unless Settings.Enabled is set; the global providers
// stay no-op and every Instrument call costs nothing. The switches live in
// the relm config (telemetry.enabled, telemetry.stdout, telemetry.endpoint,
// telemetry.metrics-endpoint), so they can be set with 'relm config set' or
// the matching RELM_TELEMETRY_* variables.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/steveyegge/relm"

// Resource attributes describing the run.
const (
	AttrRepository = attribute.Key("relm.repository")
	AttrProject    = attribute.Key("relm.jira.project")
	AttrCommand    = attribute.Key("relm.command")
)

// Settings selects the exporters and labels the run's resource.
type Settings struct {
	Enabled bool
	// Stdout pretty-prints spans and metrics to Output.
	Stdout bool
	// Output receives the stdout exporters; nil means os.Stderr, which
	// keeps spans out of outcome lines and --json documents.
	Output io.Writer
	// Endpoint receives OTLP traces over gRPC, and metrics over HTTP unless
	// MetricsEndpoint is set.
	Endpoint        string
	MetricsEndpoint string

	ServiceName string
	Version     string
	Repository  string
	Project     string
	Command     string
}

func (s Settings) output() io.Writer {
	if s.Output != nil {
		return s.Output
	}
	return os.Stderr
}

// metricsEndpoint is where OTLP metrics go, if anywhere.
func (s Settings) metricsEndpoint() string {
	if s.MetricsEndpoint != "" {
		return s.MetricsEndpoint
	}
	return s.Endpoint
}

func (s Settings) attributes() []attribute.KeyValue {
	name := s.ServiceName
	if name == "" {
		name = "relm"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(s.Version),
	}
	for _, kv := range []struct {
		key attribute.Key
		val string
	}{
		{AttrRepository, s.Repository},
		{AttrProject, s.Project},
		{AttrCommand, s.Command},
	} {
		if kv.val != "" {
			attrs = append(attrs, kv.key.String(kv.val))
		}
	}
	return attrs
}

var shutdownFns []func(context.Context) error

// Active reports whether Init installed real providers.
func Active() bool {
	return len(shutdownFns) > 0
}

// Init installs the global providers for s. With s.Enabled false the no-op
// providers are installed and nothing else happens.
func Init(ctx context.Context, s Settings) error {
	if !s.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(s.attributes()...),
		resource.WithHost(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	spanExporters, err := spanExporters(ctx, s)
	if err != nil {
		return fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	for _, exp := range spanExporters {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	readers, err := metricReaders(ctx, s)
	if err != nil {
		return errors.Join(fmt.Errorf("telemetry: metric exporter: %w", err), tp.Shutdown(ctx))
	}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, tp.Shutdown, mp.Shutdown)
	return nil
}

// spanExporters falls back to stdout when telemetry is on but no endpoint is
// set, so enabling it always shows something.
func spanExporters(ctx context.Context, s Settings) ([]sdktrace.SpanExporter, error) {
	var out []sdktrace.SpanExporter
	if s.Endpoint != "" {
		exp, err := newOTLPTraceExporter(ctx, s.Endpoint)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	if s.Stdout || len(out) == 0 {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(s.output()))
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

// metricReaders exports metrics only where asked. A run lasts seconds, so
// the periodic readers mostly flush on Shutdown.
func metricReaders(ctx context.Context, s Settings) ([]sdkmetric.Reader, error) {
	var out []sdkmetric.Reader
	if s.Stdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(s.output()))
		if err != nil {
			return nil, err
		}
		out = append(out, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)))
	}
	if endpoint := s.metricsEndpoint(); endpoint != "" {
		exp, err := newOTLPMetricExporter(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		out = append(out, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)))
	}
	return out, nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes and stops the providers installed by Init.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
}
