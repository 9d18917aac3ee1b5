// Package catalog keeps a PostgreSQL record of every indexed document: where
// it came from, its size and content hash, and its preprocessed length. The
// search service uses it to describe documents beyond their numeric id.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    index_path   TEXT        NOT NULL,
    doc_id       INTEGER     NOT NULL,
    source_path  TEXT        NOT NULL DEFAULT '',
    content_hash TEXT        NOT NULL,
    size_bytes   INTEGER     NOT NULL,
    length       INTEGER     NOT NULL,
    indexed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (index_path, doc_id)
)`

type Entry struct {
	DocID       int       `json:"doc_id"`
	SourcePath  string    `json:"source_path,omitempty"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int       `json:"size_bytes"`
	Length      int       `json:"length"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// NewEntry describes raw as document id.
func NewEntry(id int, sourcePath string, raw []byte, length int) Entry {
	return Entry{
		DocID:       id,
		SourcePath:  sourcePath,
		ContentHash: ContentHash(raw),
		SizeBytes:   len(raw),
		Length:      length,
		IndexedAt:   time.Now().UTC(),
	}
}

// ContentHash is the hex SHA-256 of raw.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Catalog stores entries for one corpus, identified by its index path.
type Catalog struct {
	db        *postgres.Client
	indexPath string
	logger    *slog.Logger
}

func New(db *postgres.Client, indexPath string) *Catalog {
	return &Catalog{
		db:        db,
		indexPath: indexPath,
		logger:    slog.Default().With("component", "catalog", "index_path", indexPath),
	}
}

func (c *Catalog) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// Record inserts e, replacing any previous entry with the same id. Rebuilding
// a corpus therefore overwrites its catalog in place.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	_, err := c.db.DB.ExecContext(ctx,
		`INSERT INTO documents (index_path, doc_id, source_path, content_hash, size_bytes, length, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (index_path, doc_id) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes,
			length = EXCLUDED.length,
			indexed_at = EXCLUDED.indexed_at`,
		c.indexPath, e.DocID, e.SourcePath, e.ContentHash, e.SizeBytes, e.Length, e.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("recording document %d: %w", e.DocID, err)
	}
	c.logger.Debug("document cataloged", "doc_id", e.DocID, "source_path", e.SourcePath)
	return nil
}

// Lookup returns the entries for ids that are cataloged; unknown ids are
// absent from the map.
func (c *Catalog) Lookup(ctx context.Context, ids []int) (map[int]Entry, error) {
	out := make(map[int]Entry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	rows, err := c.db.DB.QueryContext(ctx,
		`SELECT doc_id, source_path, content_hash, size_bytes, length, indexed_at
		FROM documents WHERE index_path = $1 AND doc_id = ANY($2)`,
		c.indexPath, pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("looking up %d documents: %w", len(ids), err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.DocID, &e.SourcePath, &e.ContentHash, &e.SizeBytes, &e.Length, &e.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		out[e.DocID] = e
	}
	return out, rows.Err()
}

// Count returns the number of cataloged documents of this corpus.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE index_path = $1`, c.indexPath,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Truncate removes every entry of this corpus; the indexer calls it before a
// fresh build.
func (c *Catalog) Truncate(ctx context.Context) (int64, error) {
	res, err := c.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE index_path = $1`, c.indexPath)
	if err != nil {
		return 0, fmt.Errorf("truncating catalog: %w", err)
	}
	return res.RowsAffected()
}
