package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer/loader"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	out := flag.String("out", "", "snapshot path (default: indexer.dataDir/indexer.snapshotFile)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] docs_path\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	docsPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("indexer", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, docsPath, *out); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, docsPath, out string) error {
	var opts []indexer.Option
	if cfg.Metrics.Enabled {
		m := metrics.New()
		opts = append(opts, indexer.WithMetrics(m))
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	engine, err := indexer.NewEngine(cfg.Indexer, opts...)
	if err != nil {
		return err
	}
	slog.Info("starting indexer",
		"docs_path", docsPath,
		"index_path", engine.IndexPath(),
		"stemmer", engine.Preprocessor().StemmerName(),
		"compression", cfg.Indexer.Compression,
	)

	var hooks []loader.Hook

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting catalog database: %w", err)
		}
		defer db.Close()
		cat := catalog.New(db, engine.IndexPath())
		if err := cat.EnsureSchema(ctx); err != nil {
			return err
		}
		removed, err := cat.Truncate(ctx)
		if err != nil {
			return err
		}
		slog.Info("document catalog enabled", "stale_entries_removed", removed)
		hooks = append(hooks, func(ctx context.Context, doc loader.Indexed) error {
			length, _ := engine.DocLength(doc.ID)
			return cat.Record(ctx, catalog.NewEntry(doc.ID, doc.Path, doc.Raw, length))
		})
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{})
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("index events enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
		hooks = append(hooks, func(ctx context.Context, doc loader.Indexed) error {
			length, _ := engine.DocLength(doc.ID)
			collector.TrackIndex(analytics.IndexEvent{
				DocID:     doc.ID,
				Path:      doc.Path,
				Length:    length,
				SizeBytes: len(doc.Raw),
				Timestamp: time.Now().UTC(),
			})
			return nil
		})
	}

	start := time.Now()
	sum, err := loader.New(engine, hooks...).LoadDir(ctx, docsPath)
	if err != nil {
		return err
	}
	if err := engine.Save(out); err != nil {
		return err
	}
	slog.Info("indexing complete",
		"files", sum.Files,
		"bytes", sum.Bytes,
		"documents", engine.DocCount(),
		"terms", engine.TermCount(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
