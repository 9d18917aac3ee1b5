package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistryIsolated(t *testing.T) {
	m1 := NewWithRegistry(prometheus.NewRegistry())
	m2 := NewWithRegistry(prometheus.NewRegistry())

	m1.DocsIndexedTotal.Add(3)
	m2.DocsIndexedTotal.Inc()

	if got := testutil.ToFloat64(m1.DocsIndexedTotal); got != 3 {
		t.Errorf("m1 docs indexed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m2.DocsIndexedTotal); got != 1 {
		t.Errorf("m2 docs indexed = %v, want 1", got)
	}
}

func TestSearchQueriesLabels(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.SearchQueriesTotal.WithLabelValues("bm25", "ok").Inc()
	m.SearchQueriesTotal.WithLabelValues("pl2", "ok").Inc()
	m.SearchQueriesTotal.WithLabelValues("bm25", "ok").Inc()

	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("bm25", "ok")); got != 2 {
		t.Errorf("bm25 ok = %v, want 2", got)
	}
}

func TestHandlerServesOwnRegistry(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.CorpusDocuments.Set(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "retrieval_corpus_documents 42") {
		t.Errorf("scrape output missing corpus gauge:\n%s", body)
	}
}
