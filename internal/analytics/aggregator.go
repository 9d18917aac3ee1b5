package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/kafka"
)

// latencyWindow is how many recent search latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	TotalDocsIndexed  int64            `json:"total_docs_indexed"`
	BytesIndexed      int64            `json:"bytes_indexed"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	ScorerUsage       map[string]int64 `json:"scorer_usage"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	Since             time.Time        `json:"since"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and index events into running statistics. It is
// safe for concurrent use.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	sessionSearches   int64 // since startTime, excluding seeded history
	totalDocsIndexed  int64
	bytesIndexed      int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	latencyNext       int
	scorerUsage       map[string]int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		scorerUsage:       make(map[string]int64),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable messages
// are logged and skipped so that they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Record(value); err != nil {
			agg.logger.Warn("skipping analytics message", "key", string(key), "error", err)
		}
		return nil
	}
}

// Record decodes one JSON event and folds it in.
func (a *Aggregator) Record(value []byte) error {
	env, err := kafka.DecodeJSON[envelope](value)
	if err != nil {
		return err
	}
	switch env.Type {
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		a.recordSearch(event)
	case EventIndexDoc:
		event, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			return err
		}
		a.recordIndex(event)
	default:
		return fmt.Errorf("unknown analytics event type %q", env.Type)
	}
	return nil
}

// PublishBatch records events in-process, letting a Collector feed the
// aggregator directly when Kafka is not configured.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		switch v := e.Value.(type) {
		case SearchEvent:
			a.recordSearch(v)
		case IndexEvent:
			a.recordIndex(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encoding analytics event: %w", err)
			}
			if err := a.Record(data); err != nil {
				return err
			}
		}
	}
	return nil
}

// Seed adds previously persisted totals, so counters survive a restart.
func (a *Aggregator) Seed(prev AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches += prev.TotalSearches
	a.totalDocsIndexed += prev.TotalDocsIndexed
	a.bytesIndexed += prev.BytesIndexed
	a.cacheHits += prev.CacheHits
	a.cacheMisses += prev.CacheMisses
	a.zeroResults += prev.ZeroResultCount
	for name, n := range prev.ScorerUsage {
		a.scorerUsage[name] += n
	}
}

func (a *Aggregator) recordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	a.sessionSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.Scorer != "" {
		a.scorerUsage[event.Scorer]++
	}
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % latencyWindow
	}
}

func (a *Aggregator) recordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalDocsIndexed++
	a.bytesIndexed += int64(event.SizeBytes)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:     a.totalSearches,
		TotalDocsIndexed:  a.totalDocsIndexed,
		BytesIndexed:      a.bytesIndexed,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		ZeroResultCount:   a.zeroResults,
		ScorerUsage:       make(map[string]int64, len(a.scorerUsage)),
		TopQueries:        topQueries(a.queryCounts, 10),
		ZeroResultQueries: topQueries(a.zeroResultQueries, 10),
		Since:             a.startTime.UTC(),
	}
	for name, n := range a.scorerUsage {
		stats.ScorerUsage[name] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.sessionSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topQueries returns the n most frequent queries; equal counts are ordered by
// query text.
func topQueries(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
