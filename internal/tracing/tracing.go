// Package tracing builds the OpenTelemetry tracer provider used by a run.
// Spans are exported as JSON lines to a file so a batch job needs no
// collector; with no file configured a no-op provider is returned.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/agentx-labs/extsync/internal/branding"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// New returns an SDK provider exporting every span to w.
func New(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}
	res := resource.NewSchemaless(attribute.String("service.name", branding.CLIName()))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

// Open returns a provider writing spans to path. An empty path yields a
// no-op provider.
func Open(path string) (trace.TracerProvider, ShutdownFunc, error) {
	if path == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace file %s: %w", path, err)
	}
	tp, err := New(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), f.Close())
	}
	return tp, shutdown, nil
}
