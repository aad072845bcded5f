package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vendata-inc/vendata-engine/pkg/cache"
	"github.com/vendata-inc/vendata-engine/pkg/config"
	"github.com/vendata-inc/vendata-engine/pkg/datasource"
	"github.com/vendata-inc/vendata-engine/pkg/handlers"
	"github.com/vendata-inc/vendata-engine/pkg/logging"
	"github.com/vendata-inc/vendata-engine/pkg/middleware"
	"github.com/vendata-inc/vendata-engine/pkg/query"
	"github.com/vendata-inc/vendata-engine/pkg/retry"
	"github.com/vendata-inc/vendata-engine/pkg/services"
	"github.com/vendata-inc/vendata-engine/pkg/tenant"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("default_database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Int("tenant_pool_ttl_minutes", cfg.TenantPools.TTLMinutes),
		zap.Int("cache_ttl_seconds", cfg.Cache.TTLSeconds),
	)

	// Default pool, used by requests that carry no tenant descriptor.
	ctx := context.Background()
	defaultPool, err := datasource.PostgresPoolFactory(ctx, cfg.Database.ConnectionString(), datasource.PoolConfig{
		MaxConns: cfg.Database.MaxConnections,
		MinConns: 1,
	})
	if err != nil {
		logger.Fatal("Failed to connect to default database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer defaultPool.Close()
	defaultHandle := datasource.NewHandle(defaultPool, datasource.Key{
		Host:     cfg.Database.Host,
		Database: cfg.Database.Database,
		Schema:   cfg.Database.Schema,
	})

	// Tenant connection routing
	router := datasource.NewRouter(datasource.RouterConfig{
		TTLMinutes:   cfg.TenantPools.TTLMinutes,
		PoolMaxConns: cfg.TenantPools.PoolMaxConns,
		PoolMinConns: cfg.TenantPools.PoolMinConns,
	}, nil, logger)
	defer func() { _ = router.Close() }()
	binder := datasource.NewBinder(router)

	// Query execution and caching
	retryPolicy := &retry.Config{
		MaxAttempts:  cfg.Query.MaxAttempts,
		Backoff:      retry.Linear(time.Duration(cfg.Query.BackoffMillis) * time.Millisecond),
		JitterFactor: 0.1,
	}
	executor := query.NewExecutor(defaultHandle, retryPolicy, logger)
	resultCache := cache.New(time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)

	// Business services
	curveService := services.NewProductCurveService(executor, resultCache, cfg.Analytics, logger)
	churnService := services.NewCustomerChurnService(executor, resultCache, cfg.Analytics, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	analyticsHandler := handlers.NewAnalyticsHandler(curveService, churnService, logger)
	analyticsHandler.RegisterRoutes(mux)

	adminHandler := handlers.NewAdminHandler(resultCache, router, logger)
	adminHandler.RegisterRoutes(mux)

	// Tenant binding runs outermost so the request logger sees the tenant.
	handler := middleware.TenantConnection(tenant.NewResolver(), binder, logger)(
		middleware.RequestLogger(logger)(mux),
	)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting vendata-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
