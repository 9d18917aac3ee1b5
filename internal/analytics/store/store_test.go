package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
)

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

func TestSnapshotRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := New(db)
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	agg := analytics.NewAggregator()
	marker := time.Now().UnixNano() % 1000
	for i := int64(0); i < marker+1; i++ {
		if err := agg.Record([]byte(`{"type":"search","query":"index","scorer":"pl2","total_hits":1}`)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.TotalSearches != marker+1 || latest.ScorerUsage["pl2"] != marker+1 {
		t.Errorf("latest snapshot = %+v", latest)
	}

	list, err := s.ListSnapshots(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSnapshots = %v, %v", list, err)
	}
}
