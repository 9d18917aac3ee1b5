// Package analytics records what the search service and the indexer do:
// producers Track events through a Collector, which batches them to Kafka
// (or straight into an in-process Aggregator), and the Aggregator folds
// them into the stats served by Handler.
package analytics

import "time"

type EventType string

const (
	EventSearch   EventType = "search"
	EventIndexDoc EventType = "index_document"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Scorer    string    `json:"scorer"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	DocID     int       `json:"doc_id"`
	Path      string    `json:"path,omitempty"`
	Length    int       `json:"length"`
	SizeBytes int       `json:"size_bytes"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope peeks at the type discriminator before the full decode.
type envelope struct {
	Type EventType `json:"type"`
}
