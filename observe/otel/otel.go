// Package otel bridges the observe.Sink to OpenTelemetry tracing so
// credential verification, pipeline runs, and tool calls are visible in
// any OpenTelemetry-compatible backend (Jaeger, Zipkin, Grafana, etc.).
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/agentcloak/mailproxy/observe"
)

const instrumentationName = "github.com/agentcloak/mailproxy"

// Sink implements observe.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts an observe.Event into an OTel span.
func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	event.Normalize()

	spanName := spanNameFor(event)
	ctx := context.Background()
	startTime := event.Timestamp

	_, span := s.tracer.Start(ctx, spanName, trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("mailproxy.event.kind", string(event.Kind)),
	}
	if event.RequestID != "" {
		attrs = append(attrs, attribute.String("mailproxy.request.id", event.RequestID))
	}
	if event.CredentialID != "" {
		attrs = append(attrs, attribute.String("mailproxy.credential.id", event.CredentialID))
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, attribute.String("mailproxy.connection.id", event.ConnectionID))
	}
	if event.SpanID != "" {
		attrs = append(attrs, attribute.String("mailproxy.span.id", event.SpanID))
	}
	if event.ParentSpanID != "" {
		attrs = append(attrs, attribute.String("mailproxy.parent_span.id", event.ParentSpanID))
	}
	if event.ToolName != "" {
		attrs = append(attrs, attribute.String("mailproxy.tool.name", event.ToolName))
	}
	if event.Name != "" {
		attrs = append(attrs, attribute.String("mailproxy.event.name", event.Name))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("mailproxy.status", string(event.Status)))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("mailproxy.message", truncate(event.Message, 1024)))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("mailproxy.duration_ms", event.DurationMs))
	}

	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("mailproxy.attr."+k, fmt.Sprintf("%v", v)))
	}

	span.SetAttributes(attrs...)

	if event.Status == observe.StatusFailed {
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	} else if event.Status == observe.StatusCompleted {
		span.SetStatus(codes.Ok, "")
	}

	endTime := startTime
	if event.DurationMs > 0 {
		endTime = startTime.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindAuth:
		return "mailproxy.auth"
	case observe.KindPipeline:
		return "mailproxy.pipeline"
	case observe.KindProvider:
		return "mailproxy.provider"
	case observe.KindTool:
		if event.ToolName != "" {
			return "mailproxy.tool." + event.ToolName
		}
		return "mailproxy.tool.call"
	case observe.KindRateLimit:
		return "mailproxy.rate_limit"
	default:
		if event.Name != "" {
			return "mailproxy." + event.Name
		}
		return "mailproxy.event"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
