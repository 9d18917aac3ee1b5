package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/redis"
)

// analyticsSnapshotInterval is how often aggregated stats are persisted when
// PostgreSQL is enabled.
const analyticsSnapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	snapshotPath := flag.String("index", "", "snapshot to serve (default: indexer.dataDir/indexer.snapshotFile)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("searcher", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *snapshotPath); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config, snapshotPath string) error {
	if snapshotPath == "" {
		snapshotPath = cfg.Indexer.SnapshotPath()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	slog.Info("loading index data", "path", snapshotPath)
	engine, err := indexer.Load(cfg.Indexer, snapshotPath, indexer.WithMetrics(m))
	if err != nil {
		return err
	}
	searcher, err := executor.New(engine,
		executor.WithTimeout(cfg.Search.Timeout),
		executor.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	checker := health.NewChecker()
	checker.Register("corpus", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", engine.DocCount(), engine.TermCount()),
		}
	})
	handlerOpts := []handler.Option{handler.WithDocuments(engine)}

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer client.Close()
			qc := cache.New(client, cfg.Redis, cache.WithMetrics(m), cache.WithNamespace(engine.IndexPath()))
			handlerOpts = append(handlerOpts, handler.WithCache(qc))
			checker.Register("redis", health.PingCheck(client.Ping, health.StatusDegraded))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	publisher, aggregator, closePublisher := analyticsSink(cfg.Kafka)
	defer closePublisher()
	collector := analytics.NewCollector(publisher, analytics.CollectorConfig{})
	collector.Start(ctx)
	defer collector.Close()
	handlerOpts = append(handlerOpts, handler.WithCollector(collector))

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, catalog and analytics persistence disabled", "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDegraded))
			handlerOpts = append(handlerOpts, handler.WithCatalog(catalog.New(db, engine.IndexPath())))

			if aggregator != nil {
				snapshots := store.New(db)
				if err := snapshots.EnsureSchema(ctx); err != nil {
					return err
				}
				prev, err := snapshots.LatestSnapshot(ctx)
				if err != nil {
					slog.Warn("could not restore analytics totals", "error", err)
				} else if prev != nil {
					aggregator.Seed(*prev)
				}
				g.Go(func() error { return snapshots.Run(ctx, aggregator, analyticsSnapshotInterval) })
			}
		}
	}

	mux := http.NewServeMux()
	handler.New(searcher, cfg.Search, handlerOpts...).Register(mux)
	if aggregator != nil {
		analytics.NewHandler(aggregator).Register(mux)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Logging}
	if m != nil {
		chain = append(chain, middleware.Metrics(m))
	}
	chain = append(chain, middleware.CORS(cfg.Server.CORSOrigins))
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		chain = append(chain, middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst).Middleware)
		slog.Info("rate limiting enabled", "rps", rl.RequestsPerSecond, "burst", rl.Burst)
	}
	chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("search service listening",
			"addr", server.Addr,
			"documents", engine.DocCount(),
			"scorer", cfg.Search.Scorer,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// analyticsSink decides where search events go. With Kafka enabled the
// searcher only produces; the analytics service is the single consumer and
// owns aggregation and persistence, so replicas never split the topic. Without
// Kafka, events feed an in-process aggregator that this process serves.
func analyticsSink(cfg config.KafkaConfig) (analytics.Publisher, *analytics.Aggregator, func() error) {
	if cfg.Enabled {
		producer := kafka.NewProducer(cfg, cfg.Topics.AnalyticsEvents)
		slog.Info("analytics events published to kafka", "topic", cfg.Topics.AnalyticsEvents)
		return producer, nil, producer.Close
	}
	aggregator := analytics.NewAggregator()
	return aggregator, aggregator, func() error { return nil }
}
