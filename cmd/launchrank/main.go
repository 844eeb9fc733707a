// Command launchrank runs the launcher ranking daemon.
//
// It loads catalog sources from a directory (or the catalog-updates Kafka
// topic), ranks queries against them with the learned ranking context,
// persists that context to Redis or PostgreSQL and serves the HTTP API.
//
// Usage:
//
//	go run ./cmd/launchrank [-config configs/development.yaml]
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/catalog"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/launchrank/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/launcher"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/rankstore"
	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting launchrank",
		"port", cfg.Server.Port,
		"catalog_mode", cfg.Catalog.Mode,
		"persistence", cfg.Persistence.Backend,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("launchrank stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("launchrank stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, prometheus.DefaultGatherer); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
			return nil
		})
	}

	store := catalog.NewStore(catalog.WithItemGauge(m.CatalogItems))
	l := launcher.New(store, launcher.WithMetrics(m))

	// Sources uploaded over HTTP or read from disk go straight into the
	// store, or through Kafka so every daemon applies them.
	var sink catalog.Sink = store
	if cfg.Catalog.Mode == config.CatalogModeKafka {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogUpdates)
		defer producer.Close()
		sink = publisher.New(producer, resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})

		// Each daemon needs every update, so it reads with its own group.
		group := fmt.Sprintf("%s-catalog-%s", cfg.Kafka.ConsumerGroup, uuid.NewString()[:8])
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogUpdates,
			catalog.HandleUpdate(store), kafka.FromBeginning(), kafka.WithGroupID(group))
		g.Go(func() error { return consumer.Run(ctx) })
		slog.Info("catalog consumer started", "topic", cfg.Kafka.Topics.CatalogUpdates, "group", group)
	}

	if cfg.Catalog.Dir != "" {
		watcher := catalog.NewWatcher(cfg.Catalog.Dir, sink, cfg.Catalog.Debounce)
		if err := watcher.Load(ctx); err != nil {
			slog.Warn("catalog directory not loaded", "dir", cfg.Catalog.Dir, "error", err)
		} else if cfg.Catalog.Watch {
			g.Go(func() error {
				if err := watcher.Run(ctx); err != nil {
					slog.Error("catalog watcher stopped", "error", err)
				}
				return nil
			})
		}
	}
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		n := store.Len()
		if n == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "catalog is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d items", n)}
	})

	var db *postgres.Client
	if cfg.Persistence.Backend == config.BackendPostgres {
		var err error
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	rs, closeStore, err := openRankStore(ctx, cfg, db, checker)
	if err != nil {
		return err
	}
	defer closeStore()

	var flusher handler.Flusher
	if rs != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := rankstore.LoadInto(loadCtx, rs, l, resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond})
		cancel()
		if err != nil {
			slog.Warn("starting with an empty ranking context", "store", rs.Name(), "error", err)
		}
		saver := rankstore.NewSaver(rs, l, cfg.Persistence.SaveInterval, rankstore.WithSaverMetrics(m))
		g.Go(func() error { return saver.Run(ctx) })
		flusher = saver
	}

	agg := analytics.NewAggregator()
	trackers := analytics.Trackers{agg}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SelectionEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		trackers = append(trackers, collector)
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.SelectionEvents)
	}

	var snapshots *aggregator.Store[analytics.Stats]
	if db != nil {
		snapshots, err = aggregator.NewStore[analytics.Stats](ctx, db)
		if err != nil {
			return fmt.Errorf("creating analytics snapshot store: %w", err)
		}
		g.Go(func() error {
			if err := snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval); err != nil {
				slog.Error("analytics snapshots stopped", "error", err)
			}
			return nil
		})
	}

	searchH := handler.New(l, trackers, flusher, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	sourcesH := ingesthandler.New(sink, store)
	analyticsH := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	searchH.Register(mux)
	sourcesH.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsH.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("launchrank listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openRankStore returns the configured ranking context store, or nil when
// persistence is off.
func openRankStore(ctx context.Context, cfg *config.Config, db *postgres.Client, checker *health.Checker) (rankstore.Store, func(), error) {
	switch cfg.Persistence.Backend {
	case config.BackendRedis:
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		checker.Register("redis", health.PingCheck(client.Ping, true))
		return rankstore.NewRedisStore(client, cfg.Redis.ContextKey), func() { client.Close() }, nil
	case config.BackendPostgres:
		s, err := rankstore.NewPostgresStore(ctx, db)
		if err != nil {
			return nil, nil, fmt.Errorf("creating postgres rank store: %w", err)
		}
		return s, func() {}, nil
	default:
		slog.Info("ranking context persistence disabled")
		return nil, func() {}, nil
	}
}
