package snapshot

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/errors"
)

// Loaded is a decoded snapshot together with the index rebuilt from it.
type Loaded struct {
	IndexPath   string
	Stemmer     string
	Compression Compression
	Index       *index.MemoryIndex
}

// Read loads the snapshot at path. Compression is detected from the file
// contents. A file that is not a well-formed snapshot, or whose contents
// violate an index invariant, fails with ErrCorruptIndex. I/O errors are
// returned wrapped but otherwise as the filesystem reported them.
func Read(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return Decode(data)
}

// Decode rebuilds a snapshot from its stored bytes.
func Decode(data []byte) (*Loaded, error) {
	raw, c, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptIndex, err)
	}
	snap, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptIndex, err)
	}
	idx, err := index.Restore(snap.State, snap.NextDocID)
	if err != nil {
		return nil, err
	}
	stemmer := snap.Stemmer
	if stemmer == "" {
		stemmer = "lancaster"
	}
	return &Loaded{
		IndexPath:   snap.IndexPath,
		Stemmer:     stemmer,
		Compression: c,
		Index:       idx,
	}, nil
}
