// Package docstore keeps the raw bytes of every indexed document in its own
// file, named by document id, next to the index snapshot.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const fileExt = ".doc"

// Store reads and writes per-document files under a single directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that holds document id.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+fileExt)
}

// Put stores raw verbatim as document id. The content is synced, renamed into
// place and the directory is synced, so after Put returns the file is durable
// and a crash never leaves a partially written document under its final name.
func (s *Store) Put(id int, raw []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating document directory: %w", err)
	}
	final := s.Path(id)
	tmp := final + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating document %d: %w", id, err)
	}
	defer f.Close()

	if _, err := f.Write(raw); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing document %d: %w", id, err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("syncing document %d: %w", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing document %d: %w", id, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming document %d: %w", id, err)
	}
	if err := syncDir(s.dir); err != nil {
		return fmt.Errorf("syncing document directory: %w", err)
	}
	return nil
}

// syncDir flushes the directory entry created by a rename.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}


// Get returns the raw bytes stored for document id.
func (s *Store) Get(id int) ([]byte, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("reading document %d: %w", id, err)
	}
	return data, nil
}
