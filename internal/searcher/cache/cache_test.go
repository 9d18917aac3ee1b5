package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

var pre = tokenizer.NewDefault()

func plan(q string) *parser.QueryPlan { return parser.Parse(pre, q) }

func computeCounter(calls *atomic.Int32) func(context.Context) (*executor.SearchResult, error) {
	return func(context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		return &executor.SearchResult{
			Query:     "documents",
			Scorer:    "bm25",
			TotalHits: 1,
			Results:   []ranker.ScoredDoc{{DocID: 4, Score: 1.5}},
		}, nil
	}
}

func TestGetOrComputeCachesByPreprocessedQuery(t *testing.T) {
	store := newMemStore()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(store, config.RedisConfig{CacheTTL: time.Minute}, WithMetrics(m))
	ctx := context.Background()
	var calls atomic.Int32

	res, hit, err := c.GetOrCompute(ctx, "bm25", 10, plan("documents"), computeCounter(&calls))
	if err != nil || hit {
		t.Fatalf("first call hit=%v err=%v", hit, err)
	}
	if res.Results[0].DocID != 4 {
		t.Errorf("result = %+v", res)
	}

	// stopwords, case and inflection do not change the key
	res, hit, err = c.GetOrCompute(ctx, "bm25", 10, plan("The DOCUMENTS"), computeCounter(&calls))
	if err != nil || !hit {
		t.Fatalf("second call hit=%v err=%v", hit, err)
	}
	if res.Query != "The DOCUMENTS" || res.Results[0].Score != 1.5 {
		t.Errorf("cached result = %+v", res)
	}
	if calls.Load() != 1 {
		t.Errorf("compute ran %d times", calls.Load())
	}
	for key, ttl := range store.ttls {
		if ttl != time.Minute {
			t.Errorf("%s stored with ttl %v", key, ttl)
		}
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.HitRate != "50.0%" || stats.Breaker != "closed" {
		t.Errorf("stats = %+v", stats)
	}
	if testutil.ToFloat64(m.CacheHitsTotal) != 1 || testutil.ToFloat64(m.CacheMissesTotal) != 1 {
		t.Error("cache metrics not recorded")
	}
}

func TestKeyVariesWithScorerLimitAndNamespace(t *testing.T) {
	a := New(newMemStore(), config.RedisConfig{})
	b := New(newMemStore(), config.RedisConfig{}, WithNamespace("/data/other"))
	p := plan("inverted index")
	keys := map[string]bool{
		a.Key("bm25", 10, p): true,
		a.Key("pl2", 10, p):  true,
		a.Key("bm25", 5, p):  true,
		b.Key("bm25", 10, p): true,
	}
	if len(keys) != 4 {
		t.Errorf("expected 4 distinct keys, got %v", keys)
	}
	for k := range keys {
		if !strings.HasPrefix(k, keyPrefix) {
			t.Errorf("key %q lacks prefix", k)
		}
	}
	if a.Key("bm25", 10, p) != a.Key("bm25", 10, plan("index inverted")) {
		t.Error("term order should not change the key")
	}
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{})
	release := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return &executor.SearchResult{Scorer: "bm25"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrCompute(context.Background(), "bm25", 10, plan("postings"), compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", calls.Load())
	}
}

func TestBackendFailureFallsThroughAndTripsBreaker(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(store, config.RedisConfig{}, WithMetrics(m))
	var calls atomic.Int32

	for i := 0; i < 4; i++ {
		if _, hit, err := c.GetOrCompute(context.Background(), "bm25", 10, plan("pasta"), computeCounter(&calls)); err != nil || hit {
			t.Fatalf("call %d: hit=%v err=%v", i, hit, err)
		}
	}
	if calls.Load() != 4 {
		t.Errorf("compute ran %d times, want 4", calls.Load())
	}
	if got := c.Stats().Breaker; got != "open" {
		t.Errorf("breaker = %s, want open", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("query-cache")); got != 1 {
		t.Errorf("breaker gauge = %v, want 1", got)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, config.RedisConfig{})
	boom := errors.New("scan failed")
	_, _, err := c.GetOrCompute(context.Background(), "bm25", 10, plan("water"), func(context.Context) (*executor.SearchResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if len(store.data) != 0 {
		t.Errorf("error result was cached: %v", store.data)
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["other:key"] = []byte("x")
	c := New(store, config.RedisConfig{})
	var calls atomic.Int32
	for _, q := range []string{"pasta", "water", "index"} {
		if _, _, err := c.GetOrCompute(context.Background(), "bm25", 10, plan(q), computeCounter(&calls)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Invalidate(context.Background())
	if err != nil || n != 3 {
		t.Errorf("Invalidate = %d, %v", n, err)
	}
	if _, ok := store.data["other:key"]; !ok || len(store.data) != 1 {
		t.Errorf("remaining keys = %v", store.data)
	}
}
