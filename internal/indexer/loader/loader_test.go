package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type recordingIndexer struct {
	docs   []string
	failAt int
}

func (r *recordingIndexer) IndexDocument(raw []byte) (int, error) {
	if r.failAt >= 0 && len(r.docs) == r.failAt {
		return -1, errors.New("disk full")
	}
	r.docs = append(r.docs, string(raw))
	return len(r.docs) - 1, nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestLoadDirLexicalOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.txt":     "second",
		"a.txt":     "first",
		"sub/c.txt": "third",
		"z.txt":     "fourth",
	})
	idx := &recordingIndexer{failAt: -1}
	var seen []int
	hook := func(_ context.Context, doc Indexed) error {
		seen = append(seen, doc.ID)
		return errors.New("catalog unavailable")
	}

	sum, err := New(idx, hook).LoadDir(context.Background(), root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	want := []string{"first", "second", "third", "fourth"}
	if !reflect.DeepEqual(idx.docs, want) {
		t.Errorf("indexed %v, want %v", idx.docs, want)
	}
	if !reflect.DeepEqual(seen, []int{0, 1, 2, 3}) {
		t.Errorf("hook saw %v", seen)
	}
	if sum.Files != 4 || sum.FirstID != 0 || sum.LastID != 3 || sum.Bytes != int64(len("firstsecondthirdfourth")) {
		t.Errorf("summary = %+v", sum)
	}
}

func TestLoadDirStopsOnIndexError(t *testing.T) {
	root := writeTree(t, map[string]string{"1": "a", "2": "b", "3": "c"})
	idx := &recordingIndexer{failAt: 1}
	sum, err := New(idx).LoadDir(context.Background(), root)
	if err == nil {
		t.Fatal("expected error")
	}
	if sum.Files != 1 || len(idx.docs) != 1 {
		t.Errorf("summary %+v after failure, indexed %v", sum, idx.docs)
	}
}

func TestLoadDirCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"1": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&recordingIndexer{failAt: -1}).LoadDir(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LoadDir error = %v, want context.Canceled", err)
	}
}

func TestLoadDirMissingRoot(t *testing.T) {
	_, err := New(&recordingIndexer{failAt: -1}).LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadDir error = %v, want os.ErrNotExist", err)
	}
}
