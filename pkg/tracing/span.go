// Package tracing records the stages of a request as a tree of timed spans
// carried in the context. A finished trace is written to the log at debug
// level, one record per span.
package tracing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    map[string]any
	children []*Span
	ended    bool
}

// Start opens a span named name. When ctx already carries a span the new one
// becomes its child and inherits its trace id; otherwise it is a root span
// with the given traceID.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// Child opens a span under the one in ctx. Without a parent span it returns
// ctx unchanged and a nil span, whose methods are no-ops.
func Child(ctx context.Context, name string) (context.Context, *Span) {
	if FromContext(ctx) == nil {
		return ctx, nil
	}
	return Start(ctx, name, "")
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span duration. Only the first call counts.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.Duration = time.Since(s.Start)
		s.ended = true
	}
}

func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
	s.mu.Unlock()
}

// Attr returns the value stored under key.
func (s *Span) Attr(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

func (s *Span) Children() []*Span {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes the span and its descendants depth first.
func (s *Span) Log(ctx context.Context, log *slog.Logger) {
	if s == nil || !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.log(ctx, log, 0)
}

func (s *Span) log(ctx context.Context, log *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
		"duration_us", s.Duration.Microseconds(),
	}
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, s.attrs[k])
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	log.DebugContext(ctx, "span", attrs...)
	for _, child := range children {
		child.log(ctx, log, depth+1)
	}
}
