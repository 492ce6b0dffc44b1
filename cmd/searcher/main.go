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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/runlog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/scanner"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/trigger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/watcher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
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
	slog.Info("starting docsearch service",
		"port", cfg.Server.Port,
		"corpus_path", cfg.Indexer.CorpusPath,
		"cache_dir", cfg.Indexer.CacheDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	aggregator := analytics.NewAggregator()
	engineOpts := []indexer.Option{indexer.WithMetrics(m)}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var pg *postgres.Client
	var runs *runlog.Store
	if cfg.Postgres.Enabled {
		pg, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, index run log disabled", "error", err)
			pg = nil
		} else {
			defer pg.Close()
			runs = runlog.NewStore(pg.DB)
			if err := runs.EnsureSchema(ctx); err != nil {
				slog.Warn("index run log schema unavailable, run log disabled", "error", err)
				runs = nil
			} else {
				engineOpts = append(engineOpts, indexer.WithRunHook(runs.Hook()))
			}
		}
	}

	var collector *analytics.Collector
	var indexEvents analytics.Publisher
	if cfg.Kafka.Enabled {
		searchProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer searchProducer.Close()
		collector = analytics.NewCollector(searchProducer, 100, 0)
		collector.Start(ctx)
		defer collector.Close()

		indexProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer indexProducer.Close()
		indexEvents = indexProducer
	}
	engineOpts = append(engineOpts, indexer.WithRunHook(analytics.IndexRunHook(aggregator, indexEvents)))

	// The cache is created after the engine; the hook reads it lazily.
	var queryCache *cache.QueryCache
	engineOpts = append(engineOpts, indexer.WithRunHook(func(ctx context.Context, run indexer.Run) {
		if queryCache == nil || (run.Status == indexer.RunFailed && run.Indexed == 0) {
			return
		}
		if err := queryCache.Invalidate(ctx); err != nil {
			slog.Warn("cache invalidation after indexing failed", "run_id", run.ID, "error", err)
		}
	}))

	engine, err := indexer.NewEngine(cfg.Indexer, engineOpts...)
	if err != nil {
		slog.Error("failed to create indexing engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if redisClient != nil {
		queryCache = cache.New(redisClient, cfg.Redis, engine.Generation)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	started := engine.Start()
	go func() {
		if err := <-started; err != nil {
			slog.Error("initial indexing did not complete", "error", err)
		}
	}()

	if cfg.Indexer.Watch {
		w, err := watcher.New(cfg.Indexer.CorpusPath, cfg.Indexer.WatchDebounce,
			scanner.New(scanner.DefaultExtensions, cfg.Indexer.MaxFileSize).Accepts, engine)
		if err != nil {
			slog.Warn("corpus watcher disabled", "error", err)
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Error("corpus watcher stopped", "error", err)
				}
			}()
		}
	}

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests, trigger.HandleMessage(engine))
		t := trigger.New(consumer)
		go func() {
			if err := t.Start(ctx); err != nil {
				slog.Error("reindex trigger stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		switch {
		case stats.IndexingInProgress:
			return health.ComponentHealth{Status: health.StatusDegraded,
				Message: fmt.Sprintf("indexing in progress, %d documents available", stats.TotalDocuments)}
		case stats.TotalDocuments == 0:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp,
			Message: fmt.Sprintf("%d documents, state %s", stats.TotalDocuments, stats.State)}
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	}
	if pg != nil {
		checker.Register("postgres", health.PingCheck(pg.Ping, false))
	}

	exec := executor.New(engine.Store(), cfg.Search, executor.WithMetrics(m))
	opts := []handler.Option{
		handler.WithAggregator(aggregator),
		handler.WithMetrics(m),
	}
	if queryCache != nil {
		opts = append(opts, handler.WithCache(queryCache))
	}
	if collector != nil {
		opts = append(opts, handler.WithCollector(collector))
	}
	if runs != nil {
		opts = append(opts, handler.WithRunLog(runs))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, handler.WithTracing(cfg.Tracing.SampleRate))
	}
	h := handler.New(exec, engine, cfg.Search.DefaultLimit, cfg.Search.MaxResults, opts...)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow))(chain)
	}
	chain = middleware.CORS(cfg.Server.AllowOrigins)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
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

	slog.Info("docsearch service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("docsearch service stopped")
}
