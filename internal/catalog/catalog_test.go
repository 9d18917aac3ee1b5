package catalog

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry(7, "corpus/a.txt", []byte("abc"), 1)
	if e.DocID != 7 || e.SizeBytes != 3 || e.Length != 1 || e.SourcePath != "corpus/a.txt" {
		t.Errorf("entry = %+v", e)
	}
	const sha = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if e.ContentHash != sha {
		t.Errorf("hash = %s", e.ContentHash)
	}
	if e.IndexedAt.IsZero() || e.IndexedAt.Location() != time.UTC {
		t.Errorf("indexed_at = %v", e.IndexedAt)
	}
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "retrieval_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "retrieval"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestCatalogRecordAndLookup(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	c := New(db, t.TempDir())
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Truncate(context.Background()) })

	for i, text := range []string{"inverted index", "cooking pasta"} {
		if err := c.Record(ctx, NewEntry(i, "doc"+strconv.Itoa(i), []byte(text), 2)); err != nil {
			t.Fatal(err)
		}
	}
	// re-recording replaces the row
	if err := c.Record(ctx, NewEntry(1, "moved", []byte("cooking pasta"), 2)); err != nil {
		t.Fatal(err)
	}

	got, err := c.Lookup(ctx, []int{0, 1, 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].SourcePath != "moved" || got[0].SizeBytes != len("inverted index") {
		t.Errorf("Lookup = %+v", got)
	}
	if n, err := c.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}
	if n, err := c.Truncate(ctx); err != nil || n != 2 {
		t.Errorf("Truncate = %d, %v", n, err)
	}
}
