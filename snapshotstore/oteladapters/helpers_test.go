package oteladapters_test

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/trace"
)

// emittedRecord is a log record together with the span that was active when it was emitted.
type emittedRecord struct {
	record      log.Record
	spanContext trace.SpanContext
}

type otelLoggerSpy struct {
	embedded.Logger

	mu       sync.Mutex
	minLevel log.Severity
	records  []emittedRecord
}

func newOTelLoggerSpy(minLevel log.Severity) *otelLoggerSpy {
	return &otelLoggerSpy{minLevel: minLevel}
}

func (s *otelLoggerSpy) Emit(ctx context.Context, record log.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, emittedRecord{
		record:      record.Clone(),
		spanContext: trace.SpanContextFromContext(ctx),
	})
}

func (s *otelLoggerSpy) Enabled(_ context.Context, param log.EnabledParameters) bool {
	return param.Severity >= s.minLevel
}

func (s *otelLoggerSpy) emitted() []emittedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]emittedRecord(nil), s.records...)
}

type otelLoggerProviderSpy struct {
	embedded.LoggerProvider

	logger *otelLoggerSpy
	names  []string
}

func newOTelLoggerProviderSpy() *otelLoggerProviderSpy {
	return &otelLoggerProviderSpy{logger: newOTelLoggerSpy(log.SeverityTrace1)}
}

func (p *otelLoggerProviderSpy) Logger(name string, _ ...log.LoggerOption) log.Logger {
	p.names = append(p.names, name)

	return p.logger
}

func attributesOf(record log.Record) map[string]log.Value {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}
