package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"example.com/aievents/internal/config"
	"example.com/aievents/internal/content"
	"example.com/aievents/internal/ingest"
	"example.com/aievents/internal/metrics"
	"example.com/aievents/internal/ratelimit"
	spg "example.com/aievents/internal/storage/postgres"
	"example.com/aievents/internal/submission"
	transport "example.com/aievents/internal/transport/http"
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.JSONFormatter{})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.SetLevel(cfg.Level())
	logger := log.WithField("version", cfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	readiness := map[string]transport.Pinger{}

	store, articles, audit, db, err := initContentStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to init content store: %v", err)
	}
	if db != nil {
		defer db.Close()
		readiness["postgres"] = db
	}

	limiterStore, redisClient, err := initLimiterStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to init rate limit store: %v", err)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.WithError(err).Warn("failed to close redis client")
			}
		}()
		if p, ok := limiterStore.(transport.Pinger); ok {
			readiness["redis"] = p
		}
	}

	// The audit ingestor outlives the signal context so requests drained by
	// Shutdown can still be recorded.
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()
	ingestor := ingest.NewIngestor(audit, cfg.Audit.QueueSize, cfg.Audit.BatchSize, cfg.Audit.BatchMaxWait, logger)
	ingestor.Start(ingestCtx)

	cache, err := content.NewInMemoryCache(cfg.List.CacheSize)
	if err != nil {
		log.Fatalf("failed to init listing cache: %v", err)
	}
	defer cache.Close()

	gate := submission.NewGate(submission.Deps{
		Limiter: ratelimit.NewLimiter(limiterStore, submission.Namespace, submission.Policy),
		Store:   store,
		Audit:   ingestor,
		Metrics: m,
		Logger:  logger.WithField("component", "submission"),
	})

	deps := &transport.ServerDeps{
		Gate:         gate,
		Directory:    content.NewDirectory(store, content.WithCache(cache, cfg.List.CacheTTL)),
		Newsroom:     content.NewNewsroom(articles),
		Metrics:      m,
		Logger:       logger.WithField("component", "http"),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadLimiter:  rate.NewLimiter(rate.Limit(cfg.List.RPS), cfg.List.Burst),
	}

	ready, err := transport.NewReadiness(cfg.Version, readiness)
	if err != nil {
		log.Fatalf("failed to init readiness checks: %v", err)
	}
	live := &transport.Liveness{}

	api := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      deps.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	observability := &http.Server{
		Addr:         cfg.Observability.Address,
		Handler:      transport.ObservabilityRouter(live, ready, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{observability, api} {
		srv := srv
		go func() {
			logger.Infof("listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}
	live.Set(true)

	select {
	case <-ctx.Done():
		logger.Info("server is shutting down...")
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
		stop()
	}
	live.Set(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	api.SetKeepAlivesEnabled(false)
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to gracefully shutdown the server")
	}

	stopIngest()
	select {
	case <-ingestor.Done():
	case <-shutdownCtx.Done():
		logger.Warn("audit flush did not finish before shutdown timeout")
	}

	if err := observability.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to gracefully shutdown observability server")
	}
	logger.Info("server stopped")
}

// initContentStore returns a nil *spg.DB when events are kept in memory.
func initContentStore(ctx context.Context, cfg config.Config, logger log.FieldLogger) (content.Store, content.ArticleStore, ingest.BatchWriter, *spg.DB, error) {
	if cfg.Postgres.DSN == "" {
		logger.Warn("no postgres dsn configured, events and articles are kept in memory")
		audit := ingest.LogWriter{Logger: logger.WithField("component", "audit")}
		return content.NewMemoryStore(), content.NewMemoryArticles(), audit, nil, nil
	}

	db, err := spg.Connect(ctx, spg.PoolConfig{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	applied, err := db.Migrate(ctx, cfg.Postgres.Migrations)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}
	logger.WithField("files", applied).Info("postgres migrations applied")

	return spg.NewEventStore(db), spg.NewArticleStore(db), spg.NewAuditWriter(db), db, nil
}

func initLimiterStore(ctx context.Context, cfg config.Config, logger log.FieldLogger) (ratelimit.Store, *redis.Client, error) {
	if cfg.Redis.Address == "" {
		logger.Warn("no redis address configured, rate limits are per process")
		mem := ratelimit.NewMemoryStore()
		ratelimit.NewJanitor(mem, ratelimit.DefaultSweepEvery, logger).Start(ctx)
		return mem, nil, nil
	}

	client, err := ratelimit.Connect(ctx, ratelimit.RedisConfig{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.NewRedisStore(client, ""), client, nil
}
