package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// StatsSource is anything that can report the current aggregate, usually an
// Aggregator.
type StatsSource interface {
	Stats() AggregatedStats
}

type Handler struct {
	source StatsSource
	logger *slog.Logger
}

func NewHandler(source StatsSource) *Handler {
	return &Handler{
		source: source,
		logger: slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /analytics/stats", h.Stats)
}

// Stats serves the current AggregatedStats. The optional top parameter
// shortens the query rankings.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.source.Stats()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "top must be a non-negative integer"})
			return
		}
		stats.TopQueries = truncate(stats.TopQueries, n)
		stats.ZeroResultQueries = truncate(stats.ZeroResultQueries, n)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func truncate(qs []QueryCount, n int) []QueryCount {
	if len(qs) > n {
		return qs[:n]
	}
	return qs
}
