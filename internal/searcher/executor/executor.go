// Package executor scores every document of a corpus index against a query
// and returns the best ones.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/feedback"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/tracing"
)

// DefaultTopN is used when Search is called with a non-positive topN.
const DefaultTopN = 10

// cancelCheckInterval is how many documents are scored between context checks.
const cancelCheckInterval = 1024

// Corpus is the read-only view of a corpus index the Searcher scans.
type Corpus interface {
	Docs() []index.DocRecord
	Lookup(term string) (*index.TermEntry, bool)
	AvgDocLength() (float64, error)
	Preprocessor() *tokenizer.Preprocessor
}

type SearchResult struct {
	Query     string             `json:"query"`
	Scorer    string             `json:"scorer"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

// Searcher ranks documents by full scan. The average document length is
// captured at construction, so the corpus must not change afterwards; given
// that, a Searcher is safe for concurrent use without locking.
type Searcher struct {
	corpus    Corpus
	pre       *tokenizer.Preprocessor
	avgDocLen float64
	timeout   time.Duration
	feedback  feedback.RelevanceFeedback
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Searcher)

// WithTimeout bounds each Execute call.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		s.timeout = d
	}
}

func WithFeedback(fb feedback.RelevanceFeedback) Option {
	return func(s *Searcher) {
		s.feedback = fb
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// New creates a Searcher over corpus. It fails with ErrEmptyCorpus when the
// corpus holds no documents.
func New(corpus Corpus, opts ...Option) (*Searcher, error) {
	avg, err := corpus.AvgDocLength()
	if err != nil {
		return nil, fmt.Errorf("creating searcher: %w", err)
	}
	s := &Searcher{
		corpus:    corpus,
		pre:       corpus.Preprocessor(),
		avgDocLen: avg,
		feedback:  feedback.Noop{},
		logger:    slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Parse preprocesses query the same way the corpus documents were.
func (s *Searcher) Parse(query string) *parser.QueryPlan {
	return parser.Parse(s.pre, query)
}

// Search ranks every document against query with scorer and returns at most
// topN (document id, score) pairs, best first. Documents sharing no term with
// the query score 0 and still take part in the ranking.
func (s *Searcher) Search(query string, scorer ranker.Scorer, topN int) ([]ranker.ScoredDoc, error) {
	results, _, err := s.scan(context.Background(), s.Parse(query), scorer, topN)
	return results, err
}

// Execute runs plan through relevance feedback and ranks the corpus with
// scorer, bounded by the configured timeout.
func (s *Searcher) Execute(ctx context.Context, plan *parser.QueryPlan, scorer ranker.Scorer, limit int) (*SearchResult, error) {
	start := time.Now()
	var (
		results []ranker.ScoredDoc
		hits    int
	)
	ctx, span := tracing.Child(ctx, "execute")
	defer span.End()
	span.SetAttr("scorer", scorer.Name())

	err := resilience.WithTimeout(ctx, s.timeout, "search", func(ctx context.Context) error {
		fctx, fspan := tracing.Child(ctx, "feedback")
		adjusted, err := s.feedback.Adjust(fctx, plan)
		fspan.End()
		if err != nil {
			return fmt.Errorf("applying relevance feedback: %w", err)
		}
		_, sspan := tracing.Child(ctx, "scan")
		results, hits, err = s.scan(ctx, adjusted, scorer, limit)
		sspan.SetAttr("docs", len(s.corpus.Docs()))
		sspan.SetAttr("hits", hits)
		sspan.End()
		return err
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.Newf(apperrors.ErrTimeout, 504, "search exceeded %v", s.timeout)
		}
		s.observe(scorer.Name(), "error", elapsed, 0)
		return nil, err
	}
	outcome := "ok"
	if hits == 0 {
		outcome = "zero_match"
	}
	s.observe(scorer.Name(), outcome, elapsed, len(results))

	s.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"scorer", scorer.Name(),
		"hits", hits,
		"results", len(results),
		"latency_ms", elapsed.Milliseconds(),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		Scorer:    scorer.Name(),
		TotalHits: hits,
		Results:   results,
	}, nil
}

// scan scores every document and returns the ranked top of the list together
// with the number of documents sharing at least one term with the query.
func (s *Searcher) scan(ctx context.Context, plan *parser.QueryPlan, scorer ranker.Scorer, topN int) ([]ranker.ScoredDoc, int, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	docs := s.corpus.Docs()
	collectionDocs := float64(len(docs)) + 1

	// resolved lazily: a query term absent from the corpus is only an error
	// if some document claims to contain it
	entries := make(map[string]*index.TermEntry, len(plan.Terms))
	for _, term := range plan.Terms {
		if e, ok := s.corpus.Lookup(term); ok {
			entries[term] = e
		}
	}

	scored := make([]ranker.ScoredDoc, len(docs))
	hits := 0
	for id, doc := range docs {
		if id%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		score := 0.0
		matched := false
		for _, term := range plan.Terms {
			st, ok := doc.Terms[term]
			if !ok {
				continue
			}
			entry, ok := entries[term]
			if !ok {
				return nil, 0, fmt.Errorf("%w: %q occurs in document %d", apperrors.ErrUnknownTerm, term, id)
			}
			matched = true
			score += scorer.Score(ranker.Match{
				QueryTF:        plan.Stats[term].Count,
				DocTF:          st.Count,
				DocLen:         doc.Length,
				AvgDocLen:      s.avgDocLen,
				DocFreq:        entry.DocFreq,
				CollectionDocs: collectionDocs,
			})
		}
		if matched {
			hits++
		}
		scored[id] = ranker.ScoredDoc{DocID: id, Score: score}
	}
	return ranker.Rank(scored, topN), hits, nil
}

func (s *Searcher) observe(scorer, outcome string, elapsed time.Duration, results int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(scorer, outcome).Inc()
	s.metrics.SearchLatency.WithLabelValues(scorer).Observe(elapsed.Seconds())
	if outcome != "error" {
		s.metrics.SearchResultsCount.Observe(float64(results))
	}
}
