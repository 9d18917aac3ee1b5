package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"information retrieval",
	"inverted index",
	"ranking documents by relevance",
	"probabilistic models",
	"term frequency",
	"search engines",
	"query expansion",
	"stemming and stopwords",
}

type workload struct {
	baseURL string
	queries []string
	scorers []string
	limit   int
}

// result collects latencies per scorer and status code counts.
type result struct {
	total     atomic.Int64
	failures  atomic.Int64
	mu        sync.Mutex
	latencies map[string][]time.Duration
	statuses  map[int]int64
}

func newResult() *result {
	return &result{
		latencies: make(map[string][]time.Duration),
		statuses:  make(map[int]int64),
	}
}

func (r *result) record(scorer string, d time.Duration, status int, err error) {
	r.total.Add(1)
	if err != nil || status != http.StatusOK {
		r.failures.Add(1)
	}
	if err != nil {
		return
	}
	r.mu.Lock()
	r.latencies[scorer] = append(r.latencies[scorer], d)
	r.statuses[status]++
	r.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:9999", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	scorers := flag.String("scorers", "bm25,pl2", "comma-separated scorers to alternate between")
	limit := flag.Int("limit", 10, "results per query")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		var err error
		if queries, err = readQueries(*queryFile); err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
	}
	w := workload{
		baseURL: strings.TrimRight(*baseURL, "/"),
		queries: queries,
		scorers: strings.Split(*scorers, ","),
		limit:   *limit,
	}

	fmt.Println("=== Text Retrieval Load Test ===")
	fmt.Printf("Target:      %s\n", w.baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique, scorers %v\n\n", len(w.queries), w.scorers)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	res := run(ctx, w, *concurrency)
	if !report(res, *duration) {
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return out, nil
}

func run(ctx context.Context, w workload, concurrency int) *result {
	res := newResult()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var g errgroup.Group
	for worker := 0; worker < concurrency; worker++ {
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				query := w.queries[i%len(w.queries)]
				scorer := w.scorers[i%len(w.scorers)]
				target := fmt.Sprintf("%s/search?q=%s&scorer=%s&limit=%d",
					w.baseURL, url.QueryEscape(query), url.QueryEscape(scorer), w.limit)

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					res.record(scorer, elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				res.record(scorer, elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
	}
	return res
}

// report prints the summary and returns false when nothing completed.
func report(res *result, duration time.Duration) bool {
	total := res.total.Load()
	failures := res.failures.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests: %d\n", total)
	fmt.Printf("Failures:       %d\n", failures)
	if total == 0 {
		fmt.Println("\nWARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Printf("Error Rate:     %.2f%%\n", float64(failures)/float64(total)*100)
	fmt.Printf("Requests/sec:   %.2f\n", float64(total)/duration.Seconds())

	res.mu.Lock()
	defer res.mu.Unlock()
	scorers := make([]string, 0, len(res.latencies))
	for s := range res.latencies {
		scorers = append(scorers, s)
	}
	sort.Strings(scorers)
	for _, s := range scorers {
		lat := res.latencies[s]
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		fmt.Printf("\n=== Latency (%s, %d requests) ===\n", s, len(lat))
		fmt.Printf("P50: %s  P95: %s  P99: %s  Max: %s\n",
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
	}

	fmt.Println("\n=== Status Codes ===")
	codes := make([]int, 0, len(res.statuses))
	for code := range res.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, res.statuses[code])
	}
	return true
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p*len(sorted)+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
