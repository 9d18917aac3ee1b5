package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestChildInheritsTraceID(t *testing.T) {
	ctx, root := Start(context.Background(), "search", "req-1")
	cctx, child := Child(ctx, "execute")
	_, grandchild := Child(cctx, "scan")
	grandchild.End()
	child.End()
	root.End()

	if child.TraceID != "req-1" || grandchild.TraceID != "req-1" {
		t.Errorf("trace ids = %q, %q", child.TraceID, grandchild.TraceID)
	}
	if kids := root.Children(); len(kids) != 1 || kids[0] != child {
		t.Errorf("root children = %v", kids)
	}
	if kids := child.Children(); len(kids) != 1 || kids[0] != grandchild {
		t.Errorf("execute children = %v", kids)
	}
	if FromContext(cctx) != child {
		t.Error("context does not carry the child span")
	}
}

func TestChildWithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := Child(ctx, "scan")
	if span != nil || got != ctx {
		t.Fatalf("Child without parent = %v", span)
	}
	span.SetAttr("k", 1)
	span.End()
	span.Log(ctx, slog.Default())
	if _, ok := span.Attr("k"); ok {
		t.Error("nil span stored an attribute")
	}
}

func TestEndOnlyOnce(t *testing.T) {
	_, s := Start(context.Background(), "x", "t")
	s.End()
	first := s.Duration
	s.End()
	if s.Duration != first {
		t.Errorf("second End changed duration from %v to %v", first, s.Duration)
	}
}

func TestLogWritesTreeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "search", "abc")
	root.SetAttr("scorer", "bm25")
	_, child := Child(ctx, "parse")
	child.SetAttr("terms", 2)
	child.End()
	root.End()
	root.Log(ctx, log)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}
	var rec struct {
		Level   string  `json:"level"`
		TraceID string  `json:"trace_id"`
		Span    string  `json:"span"`
		Depth   int     `json:"depth"`
		Terms   float64 `json:"terms"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Level != "DEBUG" || rec.TraceID != "abc" || rec.Span != "parse" || rec.Depth != 1 || rec.Terms != 2 {
		t.Errorf("child record = %+v", rec)
	}

	buf.Reset()
	root.Log(ctx, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if buf.Len() != 0 {
		t.Errorf("span logged above debug level: %s", buf.String())
	}
}
