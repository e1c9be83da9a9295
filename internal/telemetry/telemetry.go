// Package telemetry wires up the OpenTelemetry tracer provider each binary
// installs at startup, plus Inject/Extract helpers that convert a trace
// context to and from a dispatch.TraceCarrier map. Nothing in this module
// calls Inject, Extract or Tracer: the session service enqueues jobs with a
// nil carrier, so no trace context crosses the job queue.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Init installs a global tracer provider and text-map propagator. When
// exporterEndpoint is empty, spans are still generated (for propagation
// bookkeeping) but sampled out, so a participant or worker running without a
// collector configured pays only trivial overhead. No span exporter is
// registered: a non-empty exporterEndpoint only switches the sampler to
// always-sample, and the endpoint value itself is not used.
func Init(serviceName, exporterEndpoint string) (shutdown func(context.Context) error, err error) {
	sampler := sdktrace.NeverSample()
	if exporterEndpoint != "" {
		sampler = sdktrace.AlwaysSample()
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the global tracer provider.
func Tracer(name string) trace.Tracer { return otel.Tracer(name) }

// Inject serializes the active span context from ctx into a carrier map
// suitable for dispatch.TraceCarrier.
func Inject(ctx context.Context) map[string]string {
	carrier := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(carrier))
	return carrier
}

// Extract rebuilds a context carrying the propagated span context from a
// carrier map previously produced by Inject.
func Extract(ctx context.Context, carrier map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(carrier))
}
