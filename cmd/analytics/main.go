// Command analytics starts the standalone selection analytics service.
//
// It consumes search and selection events published by launchrank daemons,
// aggregates them in memory (first-result rate, zero-result queries, latency
// percentiles, most launched items) and serves GET /api/v1/analytics. With
// -snapshots it also keeps periodic snapshots in PostgreSQL.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-snapshots]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	withSnapshots := flag.Bool("snapshots", false, "store periodic snapshots in PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SelectionEvents, analytics.HandleEvent(agg),
		kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-analytics"))
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.SelectionEvents)

	checker := health.NewChecker()
	checker.Register("aggregator", func(ctx context.Context) health.ComponentHealth {
		stats := agg.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d searches, %d selections", stats.TotalSearches, stats.TotalSelections),
		}
	})

	var snapshots *aggregator.Store[analytics.Stats]
	if *withSnapshots {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, false))

		snapshots, err = aggregator.NewStore[analytics.Stats](ctx, db)
		if err != nil {
			slog.Error("failed to create snapshot store", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval); err != nil {
				slog.Error("snapshot loop error", "error", err)
			}
		}()
	}

	analyticsHandler := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
