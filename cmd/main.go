package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/reputation/internal/adapters/http/api"
	"github.com/okian/reputation/internal/adapters/http/site"
	"github.com/okian/reputation/internal/adapters/http/swagger"
	"github.com/okian/reputation/internal/adapters/repository"
	service "github.com/okian/reputation/internal/app"
	"github.com/okian/reputation/internal/config"
	"github.com/okian/reputation/internal/domain/cache"
	"github.com/okian/reputation/internal/domain/ranking"
	"github.com/okian/reputation/pkg/logger"
	"github.com/okian/reputation/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWithOptions(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(metricsOptions(cfg)...)

	if cfg.AdminAPIKey == config.DefaultAdminAPIKey {
		loggerInstance.Warn(ctx, "admin_api_key is the built-in default; set REPUTATION_ADMIN_API_KEY")
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open store", logger.String("driver", cfg.StoreDriver), logger.Error(err))
		return
	}

	svc := service.New(
		service.WithLogger(loggerInstance.Named("service")),
		service.WithStore(store),
		service.WithRanker(newRanker(cfg, store)),
		service.WithCache(cache.New(cache.WithTTL(cfg.CacheTTL))),
		service.WithPageSize(cfg.PageSize),
	)
	if err := startService(ctx, svc, store); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(ctx, svc, metrics.RefreshInterval())

	router := mux.NewRouter()
	swagger.Register(ctx, router)
	site.Register(ctx, router)
	api.NewServer(svc, svc, cfg.AdminAPIKey, api.WithLogger(loggerInstance.Named("http"))).Register(ctx, router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver),
			logger.String("rank_strategy", cfg.RankStrategy))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newStore opens the configured member store and wraps it with latency
// metrics and a per-call timeout.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var store repository.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store = repository.NewMemoryStore()
	case config.DriverPostgres:
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = pg
	case config.DriverSupabase:
		store = repository.NewPostgrestStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
	return repository.Instrument(store, repository.WithCallTimeout(cfg.StoreTimeout)), nil
}

// startService starts svc. On failure it closes store itself, since Stop
// only releases a service that started.
func startService(ctx context.Context, svc *service.Service, store repository.Store) error {
	err := svc.Start(ctx)
	if err == nil {
		return nil
	}
	if cerr := store.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}

// newRanker builds the configured rank strategy over store.
func newRanker(cfg *config.Config, store repository.Store) ranking.Ranker {
	if cfg.RankStrategy == config.RankByScan {
		return ranking.NewScanRanker(store, cfg.RankScanPageSize)
	}
	return ranking.NewCountRanker(store)
}

// metricsOptions maps the metrics settings onto manager options.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
		metrics.WithLatencyBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithConstLabels(cfg.MetricsLabels),
	}
}

// startSystemMetricsUpdater samples runtime metrics every interval until ctx ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically refreshes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the cache age gauge; GetStats records it.
func updateServiceMetrics(svc *service.Service) {
	_ = svc.GetStats()
}
