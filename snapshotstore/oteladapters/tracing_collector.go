package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

const attrErrorType = "error_type"

// TracingCollector implements snapshotstore.TracingCollector with OpenTelemetry spans.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector using a tracer of your TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a client span carrying attrs. The returned context holds the new span.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, snapshotstore.SpanContext) {

	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(toAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, sets the final status and ends the span.
// An error_type attribute becomes the description of an error status.
// Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx snapshotstore.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.setSpanStatus(status, attrs[attrErrorType])
	otelSpanCtx.span.End()
}

var _ snapshotstore.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span as snapshotstore.SpanContext.
type OTelSpanContext struct {
	span trace.Span
}

func (s *OTelSpanContext) SetStatus(status string) {
	s.setSpanStatus(status, "")
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// Span exposes the wrapped span, for example to record events on it.
func (s *OTelSpanContext) Span() trace.Span {
	return s.span
}

func (s *OTelSpanContext) setSpanStatus(status string, errorType string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")

	case "error":
		description := "snapshot store operation failed"
		if errorType != "" {
			description = errorType
		}

		s.span.SetStatus(codes.Error, description)

	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, "snapshot store operation canceled")

	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

var _ snapshotstore.SpanContext = (*OTelSpanContext)(nil)
