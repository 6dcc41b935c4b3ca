// Package observability provides OpenTelemetry tracing for tap-dayforce.
// Spans cover each stream sync, each extraction window and each API request.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer("tap-dayforce")
	tracerMu sync.RWMutex
)

func setTracer(t trace.Tracer) {
	tracerMu.Lock()
	tracer = t
	tracerMu.Unlock()
}

// GetTracer returns the global tracer
func GetTracer() trace.Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	return tracer
}

// Span wraps a tracing span with attribute batching
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := GetTracer().Start(ctx, operationName)
	return ctx, &Span{span: span, startTime: time.Now()}
}

// SetAttribute adds an attribute, applied when the span ends
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	case time.Time:
		attr = attribute.String(key, v.UTC().Format(time.RFC3339))
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Finish records err on the span, if any, and ends it.
func (s *Span) Finish(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.SetAttribute("duration_ms", time.Since(s.startTime).Milliseconds())
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// StreamTracer provides stream-scoped spans
type StreamTracer struct {
	stream string
}

// NewStreamTracer creates a tracer for one stream
func NewStreamTracer(stream string) *StreamTracer {
	return &StreamTracer{stream: stream}
}

// StartSpan starts a span named "<stream>.<operation>"
func (st *StreamTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, st.stream+"."+operation)
	span.SetAttribute("stream", st.stream)
	span.SetAttribute("operation", operation)
	return ctx, span
}

// TraceWindow runs fn inside a span describing the window [start, end).
func (st *StreamTracer) TraceWindow(ctx context.Context, start, end time.Time, fn func(context.Context) error) error {
	ctx, span := st.StartSpan(ctx, "window")
	span.SetAttribute("window.start", start)
	span.SetAttribute("window.end", end)

	err := fn(ctx)
	span.Finish(err)
	return err
}
