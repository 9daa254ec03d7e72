// README: Entry point; loads config, wires the planner stack, serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tripplanner/internal/ai"
	"tripplanner/internal/config"
	httptransport "tripplanner/internal/http"
	"tripplanner/internal/infra"
	"tripplanner/internal/maps"
	"tripplanner/internal/modules/aiusage"
	"tripplanner/internal/observability"
	"tripplanner/internal/service"
	"tripplanner/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsHandler, shutdownMetrics, err := observability.InitPrometheus()
	if err != nil {
		logger.Fatal("metrics init", zap.Error(err))
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()
	metrics := observability.DefaultMetrics()

	shutdownTracing, err := observability.InitTracing(ctx, "planner-api", cfg.Tracing.OTLPEndpoint)
	if err != nil {
		logger.Fatal("tracing init", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
	if err != nil {
		logger.Fatal("gemini init", zap.Error(err))
	}
	defer provider.Close()

	if cfg.Places.APIKey == "" {
		logger.Warn("GOOGLE_MAPS_API_KEY not set; place lookups will return no results")
	}
	places, err := maps.NewPlacesService(cfg.Places.APIKey,
		maps.WithRateLimit(cfg.Places.RequestsPerSec),
		maps.WithLogger(logger),
		maps.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("places init", zap.Error(err))
	}

	var shared maps.SharedCache
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn("redis unavailable; running without shared place cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			shared = maps.NewRedisCache(redisClient)
		}
	}
	resolver := maps.NewCachedResolver(places, shared, cfg.Places.CacheTTL, logger)

	var ledger aiusage.Ledger = aiusage.NewMemoryStore()
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("db init", zap.Error(err))
		}
		defer dbPool.Close()
		ledger = aiusage.NewStore(dbPool)
	} else {
		logger.Info("PLANNER_DB_DSN not set; planning quota is kept in memory")
	}
	quota := aiusage.NewService(ledger, cfg.Quota.Monthly)

	planner := service.NewTripPlanner(provider, tools.NewFindPlaces(resolver, logger), service.PlannerOptions{
		MaxToolCalls: cfg.Planning.MaxToolCalls,
		Logger:       logger,
		Metrics:      metrics,
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httptransport.NewServer(httptransport.ServerDeps{
		Planner:         planner,
		Quota:           quota,
		GenerateTimeout: cfg.Planning.GenerateTimeout,
		Metrics:         metricsHandler,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("planner api listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
	logger.Info("planner api stopped")
}
