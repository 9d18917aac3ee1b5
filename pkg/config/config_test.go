package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.BM25.K != 1.2 || cfg.Search.BM25.B != 0.75 {
		t.Errorf("bm25 defaults = %+v", cfg.Search.BM25)
	}
	if cfg.Search.PL2.C != 7.0 || cfg.Search.PL2.Lambda != 0.1 {
		t.Errorf("pl2 defaults = %+v", cfg.Search.PL2)
	}
	if cfg.Indexer.SnapshotPath() != "data/index/index" {
		t.Errorf("SnapshotPath = %q", cfg.Indexer.SnapshotPath())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
indexer:
  dataDir: /var/lib/corpus
  compression: zstd
search:
  scorer: pl2
  timeout: 2s
  pl2:
    c: 5
    lambda: 0.2
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRC_INDEXER_STEMMER", "snowball")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Indexer.DataDir != "/var/lib/corpus" || cfg.Indexer.Compression != "zstd" {
		t.Errorf("indexer = %+v", cfg.Indexer)
	}
	if cfg.Indexer.Stemmer != "snowball" {
		t.Errorf("stemmer env override not applied: %q", cfg.Indexer.Stemmer)
	}
	if cfg.Search.Scorer != "pl2" || cfg.Search.Timeout != 2*time.Second {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Search.PL2.C != 5 || cfg.Search.PL2.Lambda != 0.2 {
		t.Errorf("pl2 = %+v", cfg.Search.PL2)
	}
	// untouched nested defaults survive a partial file
	if cfg.Search.BM25.K != 1.2 {
		t.Errorf("bm25.k = %v, want default", cfg.Search.BM25.K)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad compression", func(c *Config) { c.Indexer.Compression = "gzip" }},
		{"bad stemmer", func(c *Config) { c.Indexer.Stemmer = "porter" }},
		{"no data dir", func(c *Config) { c.Indexer.DataDir = "" }},
		{"limit above max", func(c *Config) { c.Search.DefaultLimit = 500 }},
		{"zero lambda", func(c *Config) { c.Search.PL2.Lambda = 0 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 }},
		{"rate limit without burst", func(c *Config) { c.Server.RateLimit = RateLimitConfig{RequestsPerSecond: 5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDevelopmentConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Search != def.Search {
		t.Errorf("search = %+v, want %+v", cfg.Search, def.Search)
	}
	if cfg.Indexer != def.Indexer {
		t.Errorf("indexer = %+v, want %+v", cfg.Indexer, def.Indexer)
	}
	if cfg.Server.Port != def.Server.Port || cfg.Server.RateLimit != def.Server.RateLimit {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("corsOrigins = %v", cfg.Server.CORSOrigins)
	}
}
