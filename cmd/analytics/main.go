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
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/postgres"
)

// The analytics service aggregates the event stream of every indexer and
// searcher sharing a Kafka topic, which a single searcher's in-process
// aggregator cannot see.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8083, "HTTP port for the stats endpoint")
	interval := flag.Duration("snapshot-interval", time.Minute, "how often stats are persisted to postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("analytics", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *port, *interval); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config, port int, interval time.Duration) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	g, ctx := errgroup.WithContext(ctx)
	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting analytics database: %w", err)
		}
		defer db.Close()
		snapshots := store.New(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			return err
		}
		if prev, err := snapshots.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore analytics totals", "error", err)
		} else if prev != nil {
			aggregator.Seed(*prev)
			slog.Info("analytics totals restored", "total_searches", prev.TotalSearches)
		}
		checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDown))
		g.Go(func() error { return snapshots.Run(ctx, aggregator, interval) })
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	defer consumer.Close()
	g.Go(func() error { return consumer.Start(ctx) })

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Logging),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening",
			"addr", server.Addr,
			"topic", cfg.Kafka.Topics.AnalyticsEvents,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
