package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer serialises snapshots to disk.
type Writer struct {
	compression Compression
}

// NewWriter creates a Writer that stores snapshots with the given compression.
func NewWriter(c Compression) *Writer {
	return &Writer{compression: c}
}

// Write atomically replaces the file at path with snap. It writes a .tmp file
// in the same directory, syncs it, renames it over the target and syncs the
// directory, so readers see either the previous snapshot or the new one. It
// returns the number of bytes stored.
func (w *Writer) Write(path string, snap Snapshot) (int64, error) {
	data, err := encode(snap)
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	data = compress(w.compression, data)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming snapshot file: %w", err)
	}
	if err := syncDir(dir); err != nil {
		return 0, fmt.Errorf("syncing snapshot directory: %w", err)
	}
	return int64(len(data)), nil
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

