package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	auditapp "github.com/propledger/backend/internal/application/audit"
	leaseapp "github.com/propledger/backend/internal/application/lease"
	ledgerapp "github.com/propledger/backend/internal/application/ledger"
	meteringapp "github.com/propledger/backend/internal/application/metering"
	"github.com/propledger/backend/internal/domain/ledger"
	"github.com/propledger/backend/internal/domain/shared"
	domainstrategy "github.com/propledger/backend/internal/domain/shared/strategy"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/infrastructure/cache"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/propledger/backend/internal/infrastructure/event"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/propledger/backend/internal/infrastructure/scheduler"
	"github.com/propledger/backend/internal/infrastructure/storage"
	"github.com/propledger/backend/internal/infrastructure/strategy"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/propledger/backend/internal/interfaces/http/handler"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
	"github.com/propledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/propledger/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Property Ledger API
//	@version		1.0
//	@description	Rent and utility billing for residential properties: invoices, payments with oldest-first allocation, lease paid-through tracking and monthly water billing runs.

//	@contact.name	Platform Team
//	@contact.url	https://github.com/propledger/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry: logs bridge, traces, metrics, profiles
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting property ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracing", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetricsConfig := telemetry.DefaultDBMetricsConfig()
	dbMetricsConfig.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsConfig, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Tenant payment locks and processed-event store
	coordination, err := cache.NewCoordinationFactory(cfg.Redis, cfg.Payment.LockTTL, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize coordination", zap.Error(err))
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Error closing coordination", zap.Error(err))
		}
	}()

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	readingRepo := persistence.NewGormMeterReadingRepository(db.DB)
	topupRepo := persistence.NewGormPumpTopupRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Event bus: every committed ledger event lands in the audit trail once
	eventBus := event.NewInMemoryEventBus(log)
	auditTrail := event.NewIdempotentHandler(auditapp.NewAuditTrailHandler(auditRepo, log), coordination.Idempotency, log)
	eventBus.Subscribe(auditTrail)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Strategies
	registry, err := strategy.NewRegistryWithDefaults(cfg.Billing.WaterTariff)
	if err != nil {
		log.Fatal("Failed to register strategies", zap.Error(err))
	}
	allocator, err := registry.GetAllocationStrategy(registry.GetDefault(domainstrategy.StrategyTypeAllocation))
	if err != nil {
		log.Fatal("Failed to resolve allocation strategy", zap.Error(err))
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("propledger.ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Application services
	clock := shared.SystemClock{}
	coordinator := leaseapp.NewBillingCoordinator(log)
	coordinator.SetLedgerMetrics(ledgerMetrics)

	paymentService := ledgerapp.NewPaymentService(
		scope,
		paymentRepo,
		ledger.NewAllocationService(allocator),
		coordination.Locker,
		eventBus,
		clock,
		log,
		ledgerapp.PaymentServiceConfig{
			RetryAttempts: cfg.Payment.RetryAttempts,
			LockWait:      cfg.Payment.LockWait,
		},
	)
	paymentService.SetSettlementListener(coordinator)
	paymentService.SetLedgerMetrics(ledgerMetrics)

	invoiceService := ledgerapp.NewInvoiceService(scope, invoiceRepo, paymentRepo, eventBus, clock, log)
	leaseService := leaseapp.NewLeaseService(scope, leaseRepo, installmentRepo, coordinator, eventBus, clock, log,
		leaseapp.LeaseServiceConfig{RentDueDays: cfg.Billing.RentDueDays})
	meteringService := meteringapp.NewMeteringService(readingRepo, topupRepo, log)
	waterBilling := meteringapp.NewWaterBillingService(scope, leaseRepo, readingRepo, topupRepo, registry, eventBus, clock, log,
		meteringapp.WaterBillingConfig{
			Tariff:           cfg.Billing.WaterTariff,
			RatePerUnitCents: cfg.Billing.WaterRateCentsPerUnit,
			DueDays:          cfg.Billing.WaterDueDays,
			Workers:          cfg.Billing.Workers,
		})
	waterBilling.SetLedgerMetrics(ledgerMetrics)
	auditService := auditapp.NewAuditService(auditRepo)

	if cfg.Billing.Schedule.Enabled {
		trigger, err := scheduler.NewBillingTrigger(scheduler.BillingTriggerConfig{
			DayOfMonth:    cfg.Billing.Schedule.DayOfMonth,
			Hour:          cfg.Billing.Schedule.Hour,
			CheckInterval: cfg.Billing.Schedule.CheckInterval,
		}, waterBilling, leaseRepo, clock, log)
		if err != nil {
			log.Fatal("Failed to create billing trigger", zap.Error(err))
		}
		trigger.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Warn("Billing trigger did not stop cleanly", zap.Error(err))
			}
		}()
	}

	// Run report archive; the bucket prefix is applied by the storage layer
	var archive handler.ArchiveLinker
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err))
		}
		archive = objectStorage
		if cfg.Billing.ArchiveRuns {
			waterBilling.SetReportArchive(objectStorage)
		}
		log.Info("Billing run archive ready",
			zap.String("bucket", objectStorage.GetBucket()),
			zap.Bool("archive_runs", cfg.Billing.ArchiveRuns),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validation", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("propledger.http"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Order matters: the request id and tracing span exist before anything logs
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(httpMetrics)
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{Enabled: profiler.IsEnabled()}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterProbes(engine, r, handler.NewHealthHandler(db, version))

	var jwtMiddleware gin.HandlerFunc
	if cfg.JWT.Enabled {
		jwtConfig := middleware.DefaultJWTConfig(auth.NewTokenVerifier(cfg.JWT))
		jwtConfig.Logger = log
		jwtMiddleware = middleware.JWTAuthMiddlewareWithConfig(jwtConfig)
		r.Use(jwtMiddleware, middleware.TracingAttributeInjector())
	} else {
		log.Warn("JWT authentication disabled; every request has full access")
	}

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     true,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, jwtMiddleware),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	routeOptions := router.RouteOptions{}
	if cfg.Billing.RunRateLimit > 0 {
		runLimiter := middleware.NewRateLimiter(cfg.Billing.RunRateLimit, cfg.Billing.RunRateWindow)
		defer runLimiter.Stop()
		routeOptions.BillingRunLimit = middleware.RateLimitByKey(runLimiter, middleware.CallerKey)
		log.Info("Billing run rate limit enabled",
			zap.Int("runs", cfg.Billing.RunRateLimit),
			zap.Duration("window", cfg.Billing.RunRateWindow),
		)
	}

	router.RegisterLedgerAPI(r, router.Handlers{
		Payment:  handler.NewPaymentHandler(paymentService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Lease:    handler.NewLeaseHandler(leaseService),
		Metering: handler.NewMeteringHandler(meteringService),
		Billing:  handler.NewBillingHandler(waterBilling, archive),
		Audit:    handler.NewAuditHandler(auditService),
	}, routeOptions).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully",
		zap.Int64("events_published", eventBus.Stats().Published),
		zap.Int64("audit_duplicates", auditTrail.Stats().EventsDuplicate),
	)
}
