package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName names the OpenTelemetry instrumentation scope when none
// is given.
const DefaultServiceName = "dhaccel"

// OTelTracer bridges Tracer to an OpenTelemetry trace.Tracer. Without an SDK
// provider installed via otel.SetTracerProvider the spans are no-ops.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer uses the global OpenTelemetry provider.
func NewOTelTracer(serviceName string) *OTelTracer {
	return NewOTelTracerFromProvider(otel.GetTracerProvider(), serviceName)
}

// NewOTelTracerFromProvider uses an explicit provider.
func NewOTelTracerFromProvider(tp trace.TracerProvider, serviceName string) *OTelTracer {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	return &OTelTracer{tracer: tp.Tracer(serviceName)}
}

func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := newSpanConfig(opts)

	startOpts := []trace.SpanStartOption{trace.WithSpanKind(otelSpanKind(cfg.kind))}
	if len(cfg.attributes) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(otelAttributes(cfg.attributes)...))
	}

	ctx, span := t.tracer.Start(ctx, name, startOpts...)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func otelSpanKind(kind SpanKind) trace.SpanKind {
	switch kind {
	case SpanKindServer:
		return trace.SpanKindServer
	case SpanKindClient:
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func otelAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case int64:
			out = append(out, attribute.Int64(k, val))
		case uint64:
			out = append(out, attribute.Int64(k, int64(val)))
		case float64:
			out = append(out, attribute.Float64(k, val))
		default:
			out = append(out, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return out
}
