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

	_ "github.com/clinic-ledger/backend/docs"
	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/auth"
	"github.com/clinic-ledger/backend/internal/infrastructure/cache"
	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"github.com/clinic-ledger/backend/internal/infrastructure/event"
	"github.com/clinic-ledger/backend/internal/infrastructure/logger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/clinic-ledger/backend/internal/infrastructure/scheduler"
	"github.com/clinic-ledger/backend/internal/infrastructure/storage"
	"github.com/clinic-ledger/backend/internal/infrastructure/telemetry"
	"github.com/clinic-ledger/backend/internal/interfaces/http/handler"
	"github.com/clinic-ledger/backend/internal/interfaces/http/middleware"
	"github.com/clinic-ledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/joho/godotenv/autoload"
)

//	@title			Clinic Ledger API
//	@version		1.0
//	@description	Financial ledger for a clinic: pre-entry review, installments, partner splits and recurring charges.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, baseLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.NewProviders(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log := providers.BridgeLogger(baseLog, zapcore.InfoLevel)
	log.Info("Starting clinic ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:         logger.GormLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		RedactParams:  !cfg.Telemetry.DBLogFullSQL,
	})
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog, dbTracing)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Events are written to the outbox inside the approving transaction and
	// delivered to the bus after commit.
	serializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer)

	metrics := telemetry.NewLedgerMetrics()
	if err := db.RegisterMetrics(metrics.Registry()); err != nil {
		return fmt.Errorf("database metrics: %w", err)
	}
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(metrics, metrics.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorCfg.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorCfg.PollInterval = cfg.Event.PollInterval
		}
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			processorCfg.CleanupRetention = cfg.Event.CleanupRetention
		}

		processor := event.NewOutboxProcessor(event.NewGormOutboxRepository(db.DB), eventBus, serializer, processorCfg, log)
		if err := processor.Start(ctx); err != nil {
			return fmt.Errorf("outbox processor: %w", err)
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	attachments, err := storage.New(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("attachment storage: %w", err)
	}

	catalog := persistence.NewGormCatalog(db.DB)
	collab := appledger.Collaborators{
		Categories:   catalog,
		Suppliers:    catalog,
		SplitConfigs: persistence.NewGormPartnerSplitConfigProvider(db.DB),
		Products:     persistence.NewGormProductMatcher(db.DB),
		Attachments:  attachments,
	}
	opts := appledger.Options{
		RemainderPolicy: cfg.Ledger.RemainderPolicy(),
		MaxCatchUp:      cfg.Ledger.MaxCatchUp,
	}
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)
	entryRepo := persistence.NewGormEntryRepository(db.DB)

	entryService := appledger.NewEntryService(
		entryRepo,
		persistence.NewGormEntryItemRepository(db.DB),
		persistence.NewGormInstallmentRepository(db.DB),
		persistence.NewGormPartnerSplitRepository(db.DB),
		txScope,
		collab,
		opts,
		log,
	)
	recurrenceService := appledger.NewRecurrenceService(
		persistence.NewGormRecurringDefinitionRepository(db.DB),
		entryRepo,
		txScope,
		collab,
		opts,
		log,
	)

	// In production every instance must share the Redis lock; elsewhere a
	// single process may fall back to the in-memory one.
	lockFactory := cache.NewLockFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	tickLock, err := lockFactory.CreateLock(ctx)
	if err != nil {
		return fmt.Errorf("tick lock: %w", err)
	}
	defer func() { _ = tickLock.Close() }()

	tickScheduler, err := scheduler.NewTickScheduler(recurrenceService, tickLock, scheduler.TickSchedulerConfig{
		Enabled:    cfg.Scheduler.Enabled,
		Interval:   cfg.Scheduler.TickInterval,
		Timeout:    cfg.Scheduler.TickTimeout,
		LockTTL:    cfg.Scheduler.LockTTL,
		RunOnStart: cfg.Scheduler.RunOnStart,
	}, log, scheduler.WithObserver(metrics))
	if err != nil {
		return fmt.Errorf("tick scheduler: %w", err)
	}
	if err := tickScheduler.Start(ctx); err != nil {
		return fmt.Errorf("start tick scheduler: %w", err)
	}
	defer func() {
		if err := tickScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping tick scheduler", zap.Error(err))
		}
	}()

	engine, err := newEngine(cfg, log, db, metrics, entryService, recurrenceService, tickScheduler)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

func newEngine(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	metrics *telemetry.LedgerMetrics,
	entries *appledger.EntryService,
	definitions *appledger.RecurrenceService,
	ticks *scheduler.TickScheduler,
) (http.Handler, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(metrics.Registry())
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	authCfg := middleware.DefaultAuthConfig(jwtService)
	authCfg.Logger = log

	system := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
		"database": db.Ping,
	})

	var metricsHandler http.Handler
	if cfg.Telemetry.MetricsEnabled {
		metricsHandler = metrics.Handler()
	}

	var apiDocs gin.HandlerFunc
	if cfg.HTTP.SwaggerEnabled {
		apiDocs = ginSwagger.WrapHandler(swaggerFiles.Handler)
	}

	r, err := router.NewRouter(router.Config{
		Logger:         log,
		Tracing:        tracingCfg,
		CORS:           corsCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Auth:           middleware.Authenticate(authCfg),
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
		Health:         system.Health,
		APIDocs:        apiDocs,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r.Register(handler.NewEntryHandler(entries))
	r.Register(handler.NewRecurringHandler(definitions,
		handler.WithTickTrigger(ticks, middleware.RequireRole(auth.RoleAdmin)),
	))

	return r.Setup(), nil
}
