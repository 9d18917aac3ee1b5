package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
)

var corpus = []string{
	"Information retrieval ranks documents by relevance.",
	"Search engines build an inverted index of documents.",
	"The inverted index maps each term to its postings.",
	"Cooking pasta needs salted water.",
}

type fixture struct {
	engine   *indexer.Engine
	searcher *executor.Searcher
	mux      *http.ServeMux
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Indexer.DataDir = filepath.Join(t.TempDir(), "index")
	e, err := indexer.NewEngine(cfg.Indexer)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range corpus {
		if _, err := e.IndexDocument([]byte(d)); err != nil {
			t.Fatal(err)
		}
	}
	s, err := executor.New(e)
	if err != nil {
		t.Fatal(err)
	}
	search := cfg.Search
	search.MaxResults = 3
	opts = append([]Option{WithDocuments(e), WithLastBuild("2026-10-19")}, opts...)
	mux := http.NewServeMux()
	New(s, search, opts...).Register(mux)
	return &fixture{engine: e, searcher: s, mux: mux}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestIndexEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/")
	got := decode[map[string]string](t, rec)
	if rec.Code != http.StatusOK || got["version"] != Version || got["last_build"] != "2026-10-19" {
		t.Errorf("index = %d %v", rec.Code, got)
	}
	if rec := f.do(t, http.MethodGet, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d", rec.Code)
	}
}

func TestSearchWithoutQuery(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/search")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"results":[]}` {
		t.Errorf("missing q = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/search?q=inverted+index+documents&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[executor.SearchResult](t, rec)
	if got.Query != "inverted index documents" || got.Scorer != "bm25" || got.TotalHits != 3 {
		t.Errorf("result = %+v", got)
	}
	if len(got.Results) != 2 || got.Results[0].DocID != 1 || got.Results[1].DocID != 2 {
		t.Errorf("results = %v", got.Results)
	}

	// limit is clamped to the configured maximum
	got = decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/search?q=index&limit=50"))
	if len(got.Results) != 3 {
		t.Errorf("clamped results = %d, want 3", len(got.Results))
	}

	got = decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/search?q=pasta&scorer=pl2"))
	if got.Scorer != "pl2" || got.Results[0].DocID != 3 {
		t.Errorf("pl2 result = %+v", got)
	}
}

func TestSearchBadParameters(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		target string
		want   string
	}{
		{"/search?q=x&limit=0", "limit must be a positive integer"},
		{"/search?q=x&limit=ten", "limit must be a positive integer"},
		{"/search?q=x&scorer=tfidf", "unknown scorer"},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, tt.target)
		body := decode[map[string]string](t, rec)
		if rec.Code != http.StatusBadRequest || !strings.Contains(body["error"], tt.want) {
			t.Errorf("%s = %d %v", tt.target, rec.Code, body)
		}
	}
}

type timeoutExecutor struct{}

func (timeoutExecutor) Parse(q string) *parser.QueryPlan { return &parser.QueryPlan{RawQuery: q} }

func (timeoutExecutor) Execute(context.Context, *parser.QueryPlan, ranker.Scorer, int) (*executor.SearchResult, error) {
	return nil, apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "search exceeded 1s")
}

func TestSearchExecutorError(t *testing.T) {
	mux := http.NewServeMux()
	New(timeoutExecutor{}, config.Default().Search).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=slow", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) DeleteByPattern(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = map[string][]byte{}
	return n, nil
}

func TestSearchCacheAndAnalytics(t *testing.T) {
	qc := cache.New(&memStore{data: map[string][]byte{}}, config.RedisConfig{})
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, analytics.CollectorConfig{})
	collector.Start(context.Background())
	f := newFixture(t, WithCache(qc), WithCollector(collector))

	first := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/search?q=postings"))
	second := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/search?q=Postings!"))
	if second.Query != "Postings!" || len(second.Results) != len(first.Results) || second.Results[0] != first.Results[0] {
		t.Errorf("cached result = %+v, first = %+v", second, first)
	}

	stats := decode[cache.Stats](t, f.do(t, http.MethodGet, "/cache/stats"))
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v", stats)
	}

	rec := f.do(t, http.MethodPost, "/cache/invalidate")
	if body := decode[map[string]any](t, rec); rec.Code != http.StatusOK || body["keys_deleted"] != float64(1) {
		t.Errorf("invalidate = %d %v", rec.Code, body)
	}

	collector.Close()
	as := agg.Stats()
	if as.TotalSearches != 2 || as.CacheHits != 1 || as.ScorerUsage["bm25"] != 2 {
		t.Errorf("analytics = %+v", as)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	f := newFixture(t)
	if body := decode[map[string]string](t, f.do(t, http.MethodGet, "/cache/stats")); body["status"] != "disabled" {
		t.Errorf("stats = %v", body)
	}
	if rec := f.do(t, http.MethodPost, "/cache/invalidate"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate = %d", rec.Code)
	}
}

type fakeCatalog map[int]catalog.Entry

func (c fakeCatalog) Lookup(_ context.Context, ids []int) (map[int]catalog.Entry, error) {
	out := map[int]catalog.Entry{}
	for _, id := range ids {
		if e, ok := c[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func TestDocument(t *testing.T) {
	f := newFixture(t, WithCatalog(fakeCatalog{3: {DocID: 3, SourcePath: "food/pasta.txt"}}))

	rec := f.do(t, http.MethodGet, "/documents/3")
	got := decode[documentResponse](t, rec)
	if rec.Code != http.StatusOK || got.Content != corpus[3] || got.Catalog == nil || got.Catalog.SourcePath != "food/pasta.txt" {
		t.Errorf("document 3 = %d %+v", rec.Code, got)
	}

	got = decode[documentResponse](t, f.do(t, http.MethodGet, "/documents/0"))
	if got.Content != corpus[0] || got.Catalog != nil {
		t.Errorf("document 0 = %+v", got)
	}

	if rec := f.do(t, http.MethodGet, "/documents/4"); rec.Code != http.StatusNotFound {
		t.Errorf("out of range = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/documents/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id = %d", rec.Code)
	}
}
