// Package tracer provides a lightweight tracing abstraction for the
// backend clients.
//
// The interface keeps the rest of the engine decoupled from
// OpenTelemetry APIs. NoopTracer serves tests; OTelTracer adapts the
// global OpenTelemetry provider for production.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. If err is non-nil the span is marked as
	// failed. End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent
// use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the backend clients.
const (
	SpanStoreSelect   = "store.select"
	SpanStoreSingle   = "store.select_single"
	SpanStoreInsert   = "store.insert"
	SpanStoreUpdate   = "store.update"
	SpanStoreDelete   = "store.delete"
	SpanStorageUpload = "storage.upload"
	SpanStorageRemove = "storage.remove"
)

// Attribute keys used by the backend clients.
const (
	AttrTable  = "store.table"
	AttrRows   = "store.rows"
	AttrPath   = "storage.path"
	AttrStatus = "http.status"
)
