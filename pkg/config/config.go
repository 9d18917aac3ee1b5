// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
	CORSOrigins     []string        `yaml:"corsOrigins"`
}

// RateLimitConfig bounds requests per client address. A zero
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// IndexerConfig controls where the corpus lives on disk and how documents
// are normalised before indexing.
type IndexerConfig struct {
	DataDir      string `yaml:"dataDir"`
	SnapshotFile string `yaml:"snapshotFile"`
	Compression  string `yaml:"compression"`
	Stemmer      string `yaml:"stemmer"`
}

// SnapshotPath returns the full path of the snapshot blob.
func (c IndexerConfig) SnapshotPath() string {
	return filepath.Join(c.DataDir, c.SnapshotFile)
}

// SearchConfig controls result limits, the default scoring model and its
// hyperparameters.
type SearchConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxResults   int           `yaml:"maxResults"`
	Scorer       string        `yaml:"scorer"`
	Timeout      time.Duration `yaml:"timeout"`
	BM25         BM25Config    `yaml:"bm25"`
	PL2          PL2Config     `yaml:"pl2"`
}

// BM25Config holds the saturation constant k and length weight b.
type BM25Config struct {
	K float64 `yaml:"k"`
	B float64 `yaml:"b"`
}

// PL2Config holds the PL2 normalisation constant c and lambda.
type PL2Config struct {
	C      float64 `yaml:"c"`
	Lambda float64 `yaml:"lambda"`
}

// PostgresConfig holds PostgreSQL connection parameters for the document
// catalog.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings the indexer or searcher cannot run with.
func (c *Config) Validate() error {
	switch c.Indexer.Compression {
	case "none", "zstd":
	default:
		return fmt.Errorf("indexer.compression must be none or zstd, got %q", c.Indexer.Compression)
	}
	switch c.Indexer.Stemmer {
	case "lancaster", "snowball":
	default:
		return fmt.Errorf("indexer.stemmer must be lancaster or snowball, got %q", c.Indexer.Stemmer)
	}
	if c.Indexer.DataDir == "" || c.Indexer.SnapshotFile == "" {
		return fmt.Errorf("indexer.dataDir and indexer.snapshotFile are required")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.defaultLimit must be positive and not exceed search.maxResults")
	}
	if rl := c.Server.RateLimit; rl.RequestsPerSecond < 0 || (rl.RequestsPerSecond > 0 && rl.Burst < 1) {
		return fmt.Errorf("server.rateLimit needs a non-negative rate and a positive burst")
	}
	if c.Search.PL2.Lambda <= 0 {
		return fmt.Errorf("search.pl2.lambda must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9999,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       RateLimitConfig{RequestsPerSecond: 0, Burst: 20},
		},
		Indexer: IndexerConfig{
			DataDir:      "data/index",
			SnapshotFile: "index",
			Compression:  "none",
			Stemmer:      "lancaster",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			Scorer:       "bm25",
			Timeout:      5 * time.Second,
			BM25:         BM25Config{K: 1.2, B: 0.75},
			PL2:          PL2Config{C: 7.0, Lambda: 0.1},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "retrieval-analytics",
			Topics: KafkaTopics{
				AnalyticsEvents: "retrieval-analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TRC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRC_SERVER_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("TRC_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("TRC_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("TRC_INDEXER_COMPRESSION"); v != "" {
		cfg.Indexer.Compression = v
	}
	if v := os.Getenv("TRC_INDEXER_STEMMER"); v != "" {
		cfg.Indexer.Stemmer = v
	}
	if v := os.Getenv("TRC_SEARCH_SCORER"); v != "" {
		cfg.Search.Scorer = v
	}
	if v := os.Getenv("TRC_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("TRC_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = v == "true"
	}
	if v := os.Getenv("TRC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TRC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TRC_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true"
	}
	if v := os.Getenv("TRC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRC_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	if v := os.Getenv("TRC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TRC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TRC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
