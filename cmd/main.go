package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"foreman/internal/adapters/ai"
	"foreman/internal/adapters/config"
	"foreman/internal/adapters/errors/noop"
	"foreman/internal/adapters/errors/sentry"
	"foreman/internal/adapters/redis"
	"foreman/internal/api"
	"foreman/internal/api/chat"
	"foreman/internal/api/health"
	"foreman/internal/metrics"
	"foreman/internal/routing"
	"foreman/internal/services/usage"
	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, version, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Redis backs per-user spend accounting. The service still routes
	// without it; spend limits are simply not enforced.
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Warnf("Redis unavailable, spend limits disabled: %v", err)
		redisClient = nil
	}

	router, registry, err := initRouter(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize router: %v", err)
	}

	tracker := usage.NewTracker()
	guard := initGuard(cfg, redisClient, tracker, log)

	chatHandler := chat.New(router, registry, guard, tracker, log)

	var redisPinger health.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthHandler := health.New(log, redisPinger, router, cfg.App.Name, version)

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Server.Port,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, chatHandler, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info("System initialized successfully")

	waitForShutdown(cfg, server, redisClient, serverErr, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initRouter assembles the model catalog, provider dispatcher and routing
// core from configuration.
func initRouter(cfg *config.Config, log *logger.Logger) (*routing.Router, *routing.Registry, error) {
	registry, err := routing.NewRegistry(routing.DefaultCatalog())
	if err != nil {
		return nil, nil, errors.Wrap(err, "load model catalog")
	}

	dispatcher, err := ai.BuildDispatcher(cfg.LLM)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build provider dispatcher")
	}

	// Bind every cataloged model whose provider is registered; models of
	// disabled providers stay in the registry but fail fast at dispatch.
	bound := 0
	for _, d := range registry.All() {
		if err := dispatcher.Bind(d.ID, d.Provider); err != nil {
			log.Warnf("Model %s not bound: %v", d.ID, err)
			continue
		}
		bound++
	}
	log.Infof("Bound %d/%d models across %d providers", bound, registry.Len(), dispatcher.Providers())

	router := routing.New(
		registry,
		dispatcher,
		routing.NewCircuitBreaker(cfg.Router.FailureThreshold, cfg.Router.ResetTimeout),
		routing.NewResponseCache(cfg.Router.CacheTTL, cfg.Router.CacheMaxSize),
		routing.NewPerformanceTracker(cfg.Router.LatencyWindow),
		routing.Config{
			DefaultModel:     cfg.Router.DefaultModel,
			MaxRetries:       cfg.Router.MaxRetries,
			CacheEnabled:     cfg.Router.CacheEnabled,
			CostThresholdUSD: cfg.Router.CostThresholdUSD,
			BackoffUnit:      cfg.Router.BackoffUnit,
		},
		log,
	)

	return router, registry, nil
}

// initGuard builds the spend guard when Redis is available.
func initGuard(cfg *config.Config, redisClient *redis.Client, tracker *usage.Tracker, log *logger.Logger) *usage.Guard {
	if redisClient == nil {
		return nil
	}

	maxDaily, err := decimal.NewFromString(cfg.CostGuard.MaxDailyCostPerUser)
	if err != nil {
		log.Fatalf("Invalid COST_MAX_DAILY_PER_USER: %v", err)
	}
	maxPerRequest, err := decimal.NewFromString(cfg.CostGuard.MaxCostPerRequest)
	if err != nil {
		log.Fatalf("Invalid COST_MAX_PER_REQUEST: %v", err)
	}

	log.Infof("Spend guard enabled: $%s/day per user, $%s per request",
		maxDaily.StringFixed(2), maxPerRequest.StringFixed(2))

	return usage.NewGuard(maxDaily, maxPerRequest, usage.NewRedisSpendCache(redisClient), tracker)
}

// waitForShutdown blocks until a signal or server failure, then shuts
// everything down gracefully.
func waitForShutdown(cfg *config.Config, server *api.Server, redisClient *redis.Client, serverErr <-chan error, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warnf("Redis close: %v", err)
		}
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
