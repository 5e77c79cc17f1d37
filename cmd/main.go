package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/affinity/internal/adapters/cache"
	"github.com/okian/affinity/internal/adapters/http/api"
	"github.com/okian/affinity/internal/adapters/http/swagger"
	"github.com/okian/affinity/internal/adapters/scorer"
	service "github.com/okian/affinity/internal/app"
	"github.com/okian/affinity/internal/config"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	writeTimeoutMargin     = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	redisPingTimeout       = 3 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("affinity: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	sc, clearer := newScorer(cfg)
	scoreCache, closeCache := newCache(ctx, cfg, clearer)
	defer closeCache()

	svc := service.New(sc, scoreCache,
		service.WithLogger(log.Named("service")),
		service.WithScoringTimeout(cfg.ScoringTimeout()),
		service.WithHealthRetries(cfg.HealthRetryAttempts, cfg.HealthRetryInterval()),
		service.WithPrewarmQueueSize(cfg.PrewarmQueueSize),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, sc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.Bool("remote_scorer", cfg.ScoringURL != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// writeTimeout leaves room to encode the response after a run that used its
// whole deadline; runs past the deadline answer 503 instead of being cut off.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.RequestTimeout() + writeTimeoutMargin
}

// newScorer returns the remote scoring client when scoring_url is set and the
// local scorer otherwise. The clearer is nil for the local scorer.
func newScorer(cfg *config.Config) (scoring.Scorer, cache.Clearer) {
	if cfg.ScoringURL != "" {
		c := scorer.New(cfg.ScoringURL,
			scorer.WithTimeout(cfg.ScoringTimeout()),
			scorer.WithLogger(logger.Named("scorer")),
		)
		return c, c
	}
	return scoring.NewInMemoryScorer(scoring.WithLatencyRange(
		time.Duration(cfg.LocalScorerLatencyMinMS)*time.Millisecond,
		time.Duration(cfg.LocalScorerLatencyMaxMS)*time.Millisecond,
	)), nil
}

// newCache builds the score cache. An unreachable redis is logged and the
// cache runs local-only.
func newCache(ctx context.Context, cfg *config.Config, clearer cache.Clearer) (*cache.Cache, func()) {
	log := logger.Named("cache")
	opts := []cache.Option{
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithLogger(log),
	}
	if clearer != nil {
		opts = append(opts, cache.WithRemoteClearer(clearer))
	}

	closeFn := func() {}
	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix)
		if err != nil {
			log.Warn(ctx, "redis store disabled", logger.Error(err))
			return cache.New(opts...), closeFn
		}

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Warn(ctx, "redis unreachable; running with local cache only",
				logger.String("redis_addr", cfg.RedisAddr), logger.Error(err))
			_ = store.Close()
			return cache.New(opts...), closeFn
		}

		opts = append(opts, cache.WithRemote(store))
		closeFn = func() { _ = store.Close() }
	}
	return cache.New(opts...), closeFn
}

// newMux registers the docs and business routes.
func newMux(ctx context.Context, svc *service.Service, checker api.HealthChecker, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxClients(cfg.MaxRequestClients),
		api.WithRequestTimeout(cfg.RequestTimeout()),
		api.WithHealthChecker(checker),
	).Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater periodically refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if n, ok := stats["cacheEntries"].(int); ok {
		metrics.UpdateCacheSize(n)
	}
}
