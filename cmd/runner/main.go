package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/allocate"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/assemble"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/enrich"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/pipeline"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/route"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/api/handler"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/api/routes"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/cache"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/database"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/export"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/lock"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/logger"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/render"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/repository"
	timeProvider "github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/time"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(parseLogLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()

	conn, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ledgerRepo := repository.NewLedgerRepository(conn.DB, appLogger)
	formRepo := repository.NewFormRepository(conn.DB, appLogger)
	directoryRepo := repository.NewDirectoryRepository(conn.DB)

	// Locking backend: Redis when configured, in-process otherwise. The
	// in-process fallback is only safe for a single instance.
	var locks persistence.LockProvider
	var claims persistence.ClaimStore
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			appLogger.Error("Failed to connect to Redis", map[string]any{
				"addr":  cfg.Redis.Addr,
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		locks = lock.NewRedisLockProvider(redisClient)
		claims = lock.NewRedisClaimStore(redisClient, tp)
	} else {
		appLogger.Warn("Redis disabled, using in-process locks", nil)
		locks = lock.NewMemoryLockProvider(tp)
		claims = lock.NewMemoryClaimStore(tp)
	}

	memCache := cache.NewMemoryCache(tp)

	engine := enrich.NewEngine(formRepo, ledgerRepo, directoryRepo, memCache, appLogger, enrichConfig(cfg))
	router := route.NewRouter(appLogger)
	batcher := route.NewBatcher(cfg.Pipeline.Batching.MaxItemsPerBatch, appLogger)
	allocator := allocate.NewAllocator(ledgerRepo, locks, claims, memCache, tp, appLogger, allocatorConfig(cfg))
	renderer := render.NewHTTPRenderer(cfg.Pipeline.Renderer.BaseURL, cfg.Pipeline.Renderer.Timeout, appLogger)
	assembler := assemble.NewAssembler(ledgerRepo, renderer, tp, appLogger)

	runner := pipeline.NewRunner(ledgerRepo, claims, engine, router, batcher, allocator, assembler, tp, appLogger)

	var exporter handler.ReportExporter
	if cfg.Pipeline.Export.Enabled {
		exporter = export.NewReportExporter(cfg.Pipeline.Export.Directory, appLogger)
	}
	runHandler := handler.NewRunHandler(runner, exporter, appLogger)

	ginRouter := gin.New()
	routes.SetupMiddlewares(ginRouter, appLogger)
	routes.SetupRoutes(ginRouter, runHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           ginRouter,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}
	appLogger.Info("Server exited gracefully", nil)
}

// enrichConfig maps the loaded configuration onto the enrichment engine
func enrichConfig(cfg *config.Config) enrich.Config {
	engineCfg := enrich.DefaultConfig()
	if cfg.Pipeline.Enrichment.MaxLineItems > 0 {
		engineCfg.MaxLineItems = cfg.Pipeline.Enrichment.MaxLineItems
	}
	if cfg.Pipeline.Enrichment.MaxDescriptionLength > 0 {
		engineCfg.MaxDescriptionLength = cfg.Pipeline.Enrichment.MaxDescriptionLength
	}
	if maxAmount, err := decimal.NewFromString(cfg.Pipeline.Enrichment.MaxAmount); err == nil && maxAmount.IsPositive() {
		engineCfg.MaxAmount = maxAmount
	}
	if cfg.Pipeline.Enrichment.FallbackWindow > 0 {
		engineCfg.FallbackWindow = cfg.Pipeline.Enrichment.FallbackWindow
	}
	if cfg.Pipeline.Enrichment.OrderTotalTTL > 0 {
		engineCfg.OrderTotalTTL = cfg.Pipeline.Enrichment.OrderTotalTTL
	}
	return engineCfg
}

// allocatorConfig maps the loaded configuration onto the allocator
func allocatorConfig(cfg *config.Config) allocate.Config {
	allocCfg := allocate.DefaultConfig()
	a := cfg.Pipeline.Allocator
	if a.MaxAttempts > 0 {
		allocCfg.MaxAttempts = a.MaxAttempts
	}
	if a.DailyMax > 0 {
		allocCfg.DailyMax = a.DailyMax
	}
	if a.LockTTL > 0 {
		allocCfg.LockTTL = a.LockTTL
	}
	if a.ClaimTTL > 0 {
		allocCfg.ClaimTTL = a.ClaimTTL
	}
	if a.OverallTimeout > 0 {
		allocCfg.OverallTimeout = a.OverallTimeout
	}
	if a.ScanWindow > 0 {
		allocCfg.ScanWindow = a.ScanWindow
	}
	if a.ScanCacheTTL > 0 {
		allocCfg.ScanCacheTTL = a.ScanCacheTTL
	}
	if a.BackoffInitialMs > 0 {
		allocCfg.Backoff.Initial = time.Duration(a.BackoffInitialMs) * time.Millisecond
	}
	if a.BackoffMaxMs > 0 {
		allocCfg.Backoff.Max = time.Duration(a.BackoffMaxMs) * time.Millisecond
	}
	allocCfg.Reprocessing = a.Reprocessing
	return allocCfg
}

// parseLogLevel maps the configured level name to the logger's level
func parseLogLevel(level string) core.LogLevel {
	switch level {
	case "debug":
		return core.LogLevelDebug
	case "warn":
		return core.LogLevelWarn
	case "error":
		return core.LogLevelError
	default:
		return core.LogLevelInfo
	}
}
