// Package loader feeds a directory of documents into the corpus index. Files
// are visited in lexical order so rebuilding the same tree always assigns the
// same document ids.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Indexer is the part of the corpus index the loader drives.
type Indexer interface {
	IndexDocument(raw []byte) (int, error)
}

// Indexed describes one document after it has been added to the index.
type Indexed struct {
	ID   int
	Path string
	Raw  []byte
}

// Hook is called after every successfully indexed document. Hook errors are
// logged and do not stop the load.
type Hook func(ctx context.Context, doc Indexed) error

// Summary reports what a load did.
type Summary struct {
	Files   int
	Bytes   int64
	FirstID int
	LastID  int
}

type Loader struct {
	idx    Indexer
	hooks  []Hook
	logger *slog.Logger
}

func New(idx Indexer, hooks ...Hook) *Loader {
	return &Loader{
		idx:    idx,
		hooks:  hooks,
		logger: slog.Default().With("component", "loader"),
	}
}

// LoadDir indexes every regular file below root. It stops at the first read or
// indexing error, or when ctx is cancelled; documents indexed before that
// point stay in the index.
func (l *Loader) LoadDir(ctx context.Context, root string) (Summary, error) {
	sum := Summary{FirstID: -1, LastID: -1}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		id, err := l.idx.IndexDocument(raw)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}

		if sum.FirstID < 0 {
			sum.FirstID = id
		}
		sum.LastID = id
		sum.Files++
		sum.Bytes += int64(len(raw))
		l.logger.Info("processing doc", "path", path, "doc_id", id, "bytes", len(raw))

		doc := Indexed{ID: id, Path: path, Raw: raw}
		for _, hook := range l.hooks {
			if err := hook(ctx, doc); err != nil {
				l.logger.Error("post-index hook failed",
					"doc_id", id,
					"path", path,
					"error", err,
				)
			}
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("loading %s: %w", root, err)
	}
	return sum, nil
}
