// Package cache memoises search results in Redis. Keys are derived from the
// preprocessed query, so queries that differ only in case, stopwords or
// inflection share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the byte-level key/value backend; *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Total   int64  `json:"total"`
	HitRate string `json:"hit_rate"`
	Breaker string `json:"breaker"`
}

type QueryCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

type Option func(*QueryCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) {
		c.metrics = m
	}
}

// WithNamespace scopes keys to one corpus so that services over different
// snapshots can share a Redis database.
func WithNamespace(ns string) Option {
	return func(c *QueryCache) {
		c.namespace = ns
	}
}

func New(store Store, cfg config.RedisConfig, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:  store,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if c.metrics != nil {
				c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Key returns the cache key for ranking plan with scorer and limit.
func (c *QueryCache) Key(scorer string, limit int, plan *parser.QueryPlan) string {
	raw := fmt.Sprintf("%s|%s|limit=%d|%s", c.namespace, scorer, limit, plan.Canonical())
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Get looks up a cached result. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, key string) (*executor.SearchResult, bool) {
	var data []byte
	var found bool
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if !found {
		c.recordMiss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

// Set stores result under key. Failures are logged and otherwise ignored.
func (c *QueryCache) Set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for the query or computes, stores
// and returns it. Concurrent calls for the same key share one computation.
// The boolean reports whether the result came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	scorer string,
	limit int,
	plan *parser.QueryPlan,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	key := c.Key(scorer, limit, plan)
	if result, ok := c.Get(ctx, key); ok {
		return withQuery(result, plan.RawQuery), true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withQuery(val.(*executor.SearchResult), plan.RawQuery), false, nil
}

// Invalidate removes every search entry and returns the number deleted.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.breaker.Reset()
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: fmt.Sprintf("%.1f%%", rate),
		Breaker: c.breaker.State().String(),
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// withQuery returns result labelled with the caller's own query text, which
// may differ from the query that populated the entry.
func withQuery(result *executor.SearchResult, query string) *executor.SearchResult {
	if result.Query == query {
		return result
	}
	cp := *result
	cp.Query = query
	return &cp
}
