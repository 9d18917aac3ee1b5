// Package handler exposes the searcher over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/tracing"
)

// Version is reported by the index endpoint.
const Version = "1.0.1"

type SearchExecutor interface {
	Parse(query string) *parser.QueryPlan
	Execute(ctx context.Context, plan *parser.QueryPlan, scorer ranker.Scorer, limit int) (*executor.SearchResult, error)
}

// DocumentSource serves the raw bytes of indexed documents.
type DocumentSource interface {
	Document(id int) ([]byte, error)
}

type Catalog interface {
	Lookup(ctx context.Context, ids []int) (map[int]catalog.Entry, error)
}

type Handler struct {
	executor  SearchExecutor
	search    config.SearchConfig
	lastBuild string
	cache     *cache.QueryCache
	collector *analytics.Collector
	documents DocumentSource
	catalog   Catalog
	logger    *slog.Logger
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) {
		h.collector = c
	}
}

func WithDocuments(d DocumentSource) Option {
	return func(h *Handler) {
		h.documents = d
	}
}

func WithCatalog(c Catalog) Option {
	return func(h *Handler) {
		h.catalog = c
	}
}

// WithLastBuild overrides the build date reported by Index, which defaults
// to the day the handler was created.
func WithLastBuild(date string) Option {
	return func(h *Handler) {
		h.lastBuild = date
	}
}

func New(exec SearchExecutor, cfg config.SearchConfig, opts ...Option) *Handler {
	h := &Handler{
		executor:  exec,
		search:    cfg,
		lastBuild: time.Now().Format(time.DateOnly),
		logger:    slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /documents/{id}", h.Document)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("POST /cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"last_build": h.lastBuild,
	})
}

// Search ranks the corpus for ?q=. Optional parameters: limit (clamped to the
// configured maximum) and scorer (bm25 or pl2). A request without q gets an
// empty result list rather than an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	if !params.Has("q") {
		h.writeJSON(w, http.StatusOK, map[string]any{"results": []ranker.ScoredDoc{}})
		return
	}
	query := params.Get("q")

	limit, err := h.parseLimit(params.Get("limit"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	scorer, err := ranker.FromConfig(params.Get("scorer"), h.search)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	ctx, span := tracing.Start(ctx, "search", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()
	span.SetAttr("scorer", scorer.Name())
	span.SetAttr("limit", limit)

	_, pspan := tracing.Child(ctx, "parse")
	plan := h.executor.Parse(query)
	pspan.SetAttr("terms", len(plan.Terms))
	pspan.End()
	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, plan, scorer, limit)
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, scorer.Name(), limit, plan, compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		log.Error("search failed", "query", query, "scorer", scorer.Name(), "error", err)
		h.writeAppError(w, err)
		return
	}

	span.SetAttr("cache_hit", cacheHit)
	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"scorer", scorer.Name(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:     query,
			Terms:     plan.Terms,
			Scorer:    scorer.Name(),
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

type documentResponse struct {
	DocID   int            `json:"doc_id"`
	Content string         `json:"content"`
	Catalog *catalog.Entry `json:"catalog,omitempty"`
}

// Document returns the raw text of one document, with its catalog entry when
// a catalog is configured.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		h.writeError(w, http.StatusNotFound, "document retrieval is disabled")
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	raw, err := h.documents.Document(id)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(r.Context()).Error("reading document failed", "doc_id", id, "error", err)
		}
		h.writeAppError(w, err)
		return
	}
	resp := documentResponse{DocID: id, Content: string(raw)}
	if h.catalog != nil {
		entries, err := h.catalog.Lookup(r.Context(), []int{id})
		if err != nil {
			logger.FromContext(r.Context()).Warn("catalog lookup failed", "doc_id", id, "error", err)
		} else if e, ok := entries[id]; ok {
			resp.Catalog = &e
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.search.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	if h.search.MaxResults > 0 && limit > h.search.MaxResults {
		limit = h.search.MaxResults
	}
	return limit, nil
}

// writeAppError answers with the status mapped from err. Server-side
// failures get a generic message.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
