package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func resetProviders(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Shutdown(context.Background())
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})
}

func TestInitDisabled(t *testing.T) {
	if err := Init(context.Background(), Settings{Stdout: true, Endpoint: "localhost:4317"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Active() {
		t.Error("Active() = true after a disabled Init")
	}

	// Instruments resolve against no-op providers.
	inst := NewInstrument("test", "relm.test")
	ctx, span := inst.Start(context.Background(), "test.op")
	span.SetAttributes(attribute.String("k", "v"))
	span.Done(ctx, errors.New("boom"))
	inst.Counter("events", "test events").Add(ctx, 1)
}

func TestInitStdoutExportsSpans(t *testing.T) {
	resetProviders(t)
	var buf bytes.Buffer

	ctx := context.Background()
	err := Init(ctx, Settings{
		Enabled:    true,
		Stdout:     true,
		Output:     &buf,
		Version:    "test",
		Repository: "webapp",
		Project:    "PROJ",
		Command:    "relm merge",
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !Active() {
		t.Fatal("Active() = false after an enabled Init")
	}

	inst := NewInstrument("test", "relm.test")
	spanCtx, span := inst.Start(ctx, "test.exported", attribute.String("relm.key", "PROJ-1"))
	inst.Counter("events", "test events").Add(spanCtx, 1, metric.WithAttributes(attribute.String("outcome", "merged")))
	span.Done(spanCtx, nil)

	Shutdown(ctx)

	out := buf.String()
	for _, want := range []string{"test.exported", "relm.test.events", "relm.jira.project", "PROJ", "webapp", "relm merge"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout exporter output missing %q:\n%s", want, out)
		}
	}
	if Active() {
		t.Error("Shutdown() left hooks registered")
	}
}

func TestInitEnabledDefaultsToStdoutSpans(t *testing.T) {
	resetProviders(t)
	var buf bytes.Buffer

	ctx := context.Background()
	if err := Init(ctx, Settings{Enabled: true, Output: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, span := Tracer("").Start(ctx, "fallback.span")
	span.End()
	Shutdown(ctx)

	if !strings.Contains(buf.String(), "fallback.span") {
		t.Errorf("span not exported without an endpoint:\n%s", buf.String())
	}
}

func TestSettingsAttributes(t *testing.T) {
	attrs := Settings{Version: "1.0", Project: "PROJ"}.attributes()
	got := make(map[attribute.Key]string)
	for _, kv := range attrs {
		got[kv.Key] = kv.Value.AsString()
	}
	if got["service.name"] != "relm" {
		t.Errorf("service.name = %q, want relm", got["service.name"])
	}
	if got[AttrProject] != "PROJ" {
		t.Errorf("%s = %q, want PROJ", AttrProject, got[AttrProject])
	}
	if _, ok := got[AttrRepository]; ok {
		t.Errorf("empty repository should be omitted: %v", got)
	}
}

func TestSettingsMetricsEndpoint(t *testing.T) {
	if got := (Settings{Endpoint: "a:4317"}).metricsEndpoint(); got != "a:4317" {
		t.Errorf("metricsEndpoint() = %q, want a:4317", got)
	}
	if got := (Settings{Endpoint: "a:4317", MetricsEndpoint: "b:4318"}).metricsEndpoint(); got != "b:4318" {
		t.Errorf("metricsEndpoint() = %q, want b:4318", got)
	}
}
