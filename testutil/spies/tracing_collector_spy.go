package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

// SpanContextSpy implements snapshotstore.SpanContext for testing.
type SpanContextSpy struct {
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

// SetStatus implements snapshotstore.SpanContext.
func (c *SpanContextSpy) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// AddAttribute implements snapshotstore.SpanContext.
func (c *SpanContextSpy) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[key] = value
}

// GetStatus returns the status set on the span.
func (c *SpanContextSpy) GetStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// GetAttributes returns a copy of the attributes added to the span.
func (c *SpanContextSpy) GetAttributes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.attributes)
}

// SpanRecord represents one started span.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Finished        bool
	Status          string
	EndAttributes   map[string]string
	SpanContext     *SpanContextSpy
}

// TracingCollectorSpy captures the calls of the snapshotstore.TracingCollector interface.
type TracingCollectorSpy struct {
	spanRecords []SpanRecord
	mu          sync.Mutex
}

// NewTracingCollectorSpy creates an empty TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{spanRecords: make([]SpanRecord, 0)}
}

// StartSpan implements snapshotstore.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, snapshotstore.SpanContext) {

	s.mu.Lock()
	defer s.mu.Unlock()

	spanCtx := &SpanContextSpy{attributes: make(map[string]string)}

	s.spanRecords = append(s.spanRecords, SpanRecord{
		Name:            name,
		StartAttributes: maps.Clone(attrs),
		SpanContext:     spanCtx,
	})

	return ctx, spanCtx
}

// FinishSpan implements snapshotstore.TracingCollector.
func (s *TracingCollectorSpy) FinishSpan(spanCtx snapshotstore.SpanContext, status string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spy, ok := spanCtx.(*SpanContextSpy)
	if !ok {
		return
	}

	for i := range s.spanRecords {
		if s.spanRecords[i].SpanContext == spy {
			s.spanRecords[i].Finished = true
			s.spanRecords[i].Status = status
			s.spanRecords[i].EndAttributes = maps.Clone(attrs)
		}
	}
}

// GetSpanRecords returns a copy of all span records.
func (s *TracingCollectorSpy) GetSpanRecords() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpanRecord(nil), s.spanRecords...)
}

// HasSpanRecordForName starts a fluent chain to check a span record.
func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	matcher := &SpanRecordMatcher{}
	for _, record := range s.spanRecords {
		if record.Name == name {
			matcher.candidates = append(matcher.candidates, record)
		}
	}

	return matcher
}

// SpanRecordMatcher provides a fluent interface for checking span records.
type SpanRecordMatcher struct {
	candidates []SpanRecord
}

// WithStatus requires the finish status.
func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.filter(func(record SpanRecord) bool { return record.Finished && record.Status == status })
}

// WithStartAttribute requires an attribute passed to StartSpan.
func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(record SpanRecord) bool { return record.StartAttributes[key] == value })
}

// WithEndAttribute requires an attribute passed to FinishSpan.
func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(record SpanRecord) bool { return record.EndAttributes[key] == value })
}

// WithSpanAttribute requires an attribute added through SpanContext.AddAttribute.
func (m *SpanRecordMatcher) WithSpanAttribute(key string) *SpanRecordMatcher {
	return m.filter(func(record SpanRecord) bool {
		_, ok := record.SpanContext.GetAttributes()[key]
		return ok
	})
}

func (m *SpanRecordMatcher) filter(accept func(record SpanRecord) bool) *SpanRecordMatcher {
	remaining := make([]SpanRecord, 0, len(m.candidates))
	for _, record := range m.candidates {
		if accept(record) {
			remaining = append(remaining, record)
		}
	}

	m.candidates = remaining

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}
