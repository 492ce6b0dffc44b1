// Package tracing records timed spans for a single request and logs the
// finished tree through slog. Spans travel in the context; a child started
// without a parent is still timed but is never logged.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []slog.Attr
	children []*Span
}

// StartSpan begins a root span for traceID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan begins a span under the one carried by ctx, if any.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

// SetAttr records an attribute; attributes are logged in insertion order.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Children returns the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes one line per span, depth first.
func (s *Span) Log() {
	s.log(slog.Default(), "", 0)
}

func (s *Span) log(logger *slog.Logger, parent string, depth int) {
	s.mu.Lock()
	attrs := make([]any, 0, len(s.attrs)+5)
	attrs = append(attrs,
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", float64(s.Duration.Microseconds())/1000,
		"depth", depth,
	)
	if parent != "" {
		attrs = append(attrs, "parent", parent)
	}
	for _, a := range s.attrs {
		attrs = append(attrs, a)
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.Info("span", attrs...)
	for _, c := range children {
		c.log(logger, s.Name, depth+1)
	}
}
