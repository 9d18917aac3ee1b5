// Package extract splits Wikipedia-extractor style dump files, which hold many
// <doc id="N" ...> ... </doc> blocks, into one file per document named by id.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

var (
	docStartTag = []byte(`<doc id="`)
	docEndTag   = []byte("</doc>\n")
	docIDRe     = regexp.MustCompile(`doc id="(\d+)"`)
)

// Doc is one block cut out of a dump file.
type Doc struct {
	ID      string
	Content []byte
}

// Split returns the complete blocks of content in order. A block runs from a
// start tag to the next end tag, inclusive. Scanning stops at the first point
// where no further complete block follows; blocks without a numeric id are
// skipped.
func Split(content []byte) []Doc {
	var docs []Doc
	offset := 0
	for offset < len(content) {
		start := bytes.Index(content[offset:], docStartTag)
		end := bytes.Index(content[offset:], docEndTag)
		if start < 0 || end < 0 || end <= start {
			break
		}
		start += offset
		end += offset
		offset = end + len(docEndTag)
		block := content[start:offset]
		m := docIDRe.FindSubmatch(block)
		if m == nil {
			continue
		}
		docs = append(docs, Doc{ID: string(m[1]), Content: block})
	}
	return docs
}

// Summary counts what ExtractDir processed.
type Summary struct {
	Files int
	Docs  int
}

// ExtractDir splits every file below inputDir and writes each block to
// outputDir/<id>, replacing any existing file with that name.
func ExtractDir(ctx context.Context, inputDir, outputDir string) (Summary, error) {
	logger := slog.Default().With("component", "extract")
	var sum Summary
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return sum, fmt.Errorf("creating output directory: %w", err)
	}
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			logger.Info("found directory", "path", path)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		docs := Split(content)
		for _, doc := range docs {
			out := filepath.Join(outputDir, doc.ID)
			if err := os.WriteFile(out, doc.Content, 0644); err != nil {
				return fmt.Errorf("writing document %s: %w", doc.ID, err)
			}
		}
		sum.Files++
		sum.Docs += len(docs)
		logger.Info("processed file", "path", path, "docs", len(docs))
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("extracting %s: %w", inputDir, err)
	}
	return sum, nil
}
