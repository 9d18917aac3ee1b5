package indexer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
)

// Engine is the corpus index. It is built by feeding documents one at a time
// through IndexDocument and is then either saved as a snapshot or handed to
// a searcher. Writes are serialised; once indexing has finished an Engine can
// be shared by any number of concurrent readers.
type Engine struct {
	mu          sync.Mutex
	memIndex    *index.MemoryIndex
	docs        *docstore.Store
	pre         *tokenizer.Preprocessor
	writer      *snapshot.Writer
	indexPath   string
	defaultPath string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithMetrics makes the Engine record indexing and snapshot metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an empty corpus index whose raw documents and snapshot
// live in cfg.DataDir.
func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	pre, err := tokenizer.ForStemmer(cfg.Stemmer)
	if err != nil {
		return nil, fmt.Errorf("creating preprocessor: %w", err)
	}
	compression, err := snapshot.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		memIndex:    index.NewMemoryIndex(),
		docs:        docstore.New(cfg.DataDir),
		pre:         pre,
		writer:      snapshot.NewWriter(compression),
		indexPath:   cfg.DataDir,
		defaultPath: cfg.SnapshotPath(),
		logger:      slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load rebuilds a corpus index from the snapshot at path. The stemmer
// recorded in the snapshot takes precedence over cfg.Stemmer so queries are
// normalised the same way the documents were. Raw documents are expected in
// the snapshot's directory. Malformed snapshots fail with ErrCorruptIndex.
func Load(cfg config.IndexerConfig, path string, opts ...Option) (*Engine, error) {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}
	loaded, err := snapshot.Read(path)
	if err != nil {
		e.countSnapshotOp("load", "error")
		return nil, fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	pre, err := tokenizer.ForStemmer(loaded.Stemmer)
	if err != nil {
		e.countSnapshotOp("load", "error")
		return nil, fmt.Errorf("%w: snapshot %s: %v", apperrors.ErrCorruptIndex, path, err)
	}
	if cfg.Stemmer != "" && cfg.Stemmer != loaded.Stemmer {
		e.logger.Warn("snapshot stemmer overrides configuration",
			"configured", cfg.Stemmer,
			"snapshot", loaded.Stemmer,
		)
	}

	e.pre = pre
	e.memIndex = loaded.Index
	e.docs = docstore.New(filepath.Dir(path))
	e.defaultPath = path
	if loaded.IndexPath != "" {
		e.indexPath = loaded.IndexPath
	}
	e.countSnapshotOp("load", "ok")
	e.updateCorpusGauges()
	e.logger.Info("snapshot loaded",
		"path", path,
		"docs", e.memIndex.DocCount(),
		"terms", e.memIndex.TermCount(),
		"stemmer", loaded.Stemmer,
		"compression", loaded.Compression,
	)
	return e, nil
}

// IndexDocument preprocesses raw, stores it verbatim under the next document
// id and folds its term statistics into the index. The raw bytes are durable
// before the index changes, so a failed call leaves the index untouched and
// the returned id is only valid on success.
func (e *Engine) IndexDocument(raw []byte) (int, error) {
	terms := e.pre.Preprocess(string(raw))
	stats := tokenizer.ToTermStats(terms)

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.memIndex.NextDocID()
	if err := e.docs.Put(id, raw); err != nil {
		return -1, fmt.Errorf("persisting document %d: %w", id, err)
	}
	e.memIndex.AddDocument(stats)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.TokensIndexedTotal.Add(float64(len(terms)))
	}
	e.logger.Debug("document indexed",
		"doc_id", id,
		"bytes", len(raw),
		"terms", len(terms),
		"distinct_terms", len(stats),
	)
	return id, nil
}

// AvgDocLength returns the mean document length in terms. It fails with
// ErrEmptyCorpus when nothing has been indexed.
func (e *Engine) AvgDocLength() (float64, error) {
	return e.memIndex.AvgDocLength()
}

// Save writes the full index state to path, or to the configured snapshot
// path when path is empty.
func (e *Engine) Save(path string) error {
	if path == "" {
		path = e.defaultPath
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := snapshot.Snapshot{
		IndexPath: e.indexPath,
		Stemmer:   e.pre.StemmerName(),
		State:     e.memIndex.State(),
		NextDocID: e.memIndex.NextDocID(),
	}
	size, err := e.writer.Write(path, snap)
	if err != nil {
		e.countSnapshotOp("save", "error")
		return fmt.Errorf("saving snapshot %s: %w", path, err)
	}
	e.countSnapshotOp("save", "ok")
	e.updateCorpusGauges()
	e.logger.Info("snapshot saved",
		"path", path,
		"bytes", size,
		"docs", snap.NextDocID,
		"terms", snap.State.NextTermID,
	)
	return nil
}

func (e *Engine) DocCount() int {
	return e.memIndex.DocCount()
}

func (e *Engine) TermCount() int {
	return e.memIndex.TermCount()
}

// Docs returns the document records in id order.
func (e *Engine) Docs() []index.DocRecord {
	return e.memIndex.Docs()
}

// DocLength returns the preprocessed length of document id.
func (e *Engine) DocLength(id int) (int, bool) {
	rec, ok := e.memIndex.Doc(id)
	return rec.Length, ok
}

// Lookup returns the inverted-index entry for a preprocessed term.
func (e *Engine) Lookup(term string) (*index.TermEntry, bool) {
	return e.memIndex.Lookup(term)
}

// Document returns the raw bytes stored for document id.
func (e *Engine) Document(id int) ([]byte, error) {
	if id < 0 || id >= e.memIndex.DocCount() {
		return nil, fmt.Errorf("%w: document %d", apperrors.ErrNotFound, id)
	}
	return e.docs.Get(id)
}

func (e *Engine) Preprocessor() *tokenizer.Preprocessor {
	return e.pre
}

// IndexPath is the location recorded in saved snapshots.
func (e *Engine) IndexPath() string {
	return e.indexPath
}

func (e *Engine) updateCorpusGauges() {
	if e.metrics == nil {
		return
	}
	e.metrics.CorpusDocuments.Set(float64(e.memIndex.DocCount()))
	e.metrics.CorpusTerms.Set(float64(e.memIndex.TermCount()))
}

func (e *Engine) countSnapshotOp(op, status string) {
	if e.metrics != nil {
		e.metrics.SnapshotOpsTotal.WithLabelValues(op, status).Inc()
	}
}
