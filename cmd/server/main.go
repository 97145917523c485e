package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appsync "github.com/catalogsync/backend/internal/application/sync"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/crypto"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
	"github.com/catalogsync/backend/internal/infrastructure/queue"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/infrastructure/sink"
	"github.com/catalogsync/backend/internal/infrastructure/source"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/catalogsync/backend/internal/interfaces/http/router"

	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting catalog sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := persistence.Migrate(db.DB); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	scheduleRepo := persistence.NewGormSyncScheduleRepository(db.DB)
	stateRepo := persistence.NewGormSyncStateRepository(db.DB)
	configCacheRepo := persistence.NewGormConfigCacheRepository(db.DB)
	entityMappingStore := persistence.NewGormEntityMappingStore(db.DB)
	productMappingStore := persistence.NewGormProductMappingStore(db.DB)

	// Credential sealing
	box, err := crypto.NewBox(cfg.Crypto.CredentialKey)
	if err != nil {
		log.Fatal("Failed to initialize credential box", zap.Error(err))
	}

	// Job dedup store: in memory for single-instance deployments, Redis when
	// several instances share one database.
	var dedup queue.IdempotencyStore
	if cfg.Redis.Enabled {
		redisDedup, err := queue.NewRedisIdempotencyStore(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		dedup = redisDedup
		log.Info("Using redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		dedup = queue.NewInMemoryIdempotencyStore()
	}

	// Initialize job queue
	jobQueue, err := queue.NewPriorityJobQueue(queue.Config{
		Workers:       cfg.Queue.Workers,
		Capacity:      cfg.Queue.Capacity,
		MaxRetries:    cfg.Queue.MaxRetries,
		RetryDelay:    cfg.Queue.RetryDelay,
		MaxRetryDelay: cfg.Queue.MaxRetryDelay,
		DedupTTL:      cfg.Queue.DedupTTL,
	}, dedup, log)
	if err != nil {
		log.Fatal("Failed to initialize job queue", zap.Error(err))
	}

	// Initialize application services
	cachedConfig := appsync.NewCachedConfigService(configCacheRepo, stateRepo)
	configProcessor := appsync.NewConfigSyncProcessor(cachedConfig, entityMappingStore, cfg.Sync.MediaFolderName, cfg.Sync.ProductBatchSize, log)
	productProcessor := appsync.NewProductSyncProcessor(cachedConfig, entityMappingStore, productMappingStore, stateRepo, cfg.Sync.ProductBatchSize, cfg.Sync.MediaFolderName, log)
	stockProcessor := appsync.NewStockSyncProcessor(productMappingStore, cfg.Sync.StockBatchSize, log)
	jobService := appsync.NewJobService(jobRepo, tenantRepo, jobQueue, box, log)
	mappingService := appsync.NewMappingService(entityMappingStore, productMappingStore, log)

	// Per-job adapter factories
	sourceConfig := source.Config{
		Timeout:             30 * time.Second,
		Retries:             cfg.Sync.RequestRetries,
		RetryDelay:          cfg.Sync.RequestRetryDelay,
		RateLimitRetryAfter: cfg.Sync.RateLimitRetryAfter,
		PageSize:            cfg.Sync.ProductBatchSize,
		ImageFanout:         cfg.Sync.ImageFanout,
		ImageBatchDelay:     cfg.Sync.ImageBatchDelay,
	}
	sinkConfig := sink.Config{
		Timeout:             60 * time.Second,
		Retries:             cfg.Sync.RequestRetries,
		RetryDelay:          cfg.Sync.RequestRetryDelay,
		RateLimitRetryAfter: cfg.Sync.RateLimitRetryAfter,
	}
	newSource := func(creds syncdomain.Credentials) (catalog.SourceClient, error) {
		return source.NewClient(creds, sourceConfig, log)
	}
	newSink := func(creds syncdomain.Credentials) (catalog.SinkClient, error) {
		return sink.NewClient(creds, sinkConfig, log)
	}

	runner := appsync.NewJobRunner(
		jobRepo,
		stateRepo,
		tenantRepo,
		configProcessor,
		productProcessor,
		stockProcessor,
		newSource,
		newSink,
		cfg.Sync.DefaultCurrency,
		decimal.NewFromFloat(cfg.Sync.DefaultTaxRate),
		log,
	)

	// Start queue workers
	if err := jobQueue.Start(context.Background(), runner); err != nil {
		log.Fatal("Failed to start job queue", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Stop(context.Background()); err != nil {
			log.Error("Error stopping job queue", zap.Error(err))
		}
	}()
	log.Info("Job queue started",
		zap.Int("workers", cfg.Queue.Workers),
		zap.Int("capacity", cfg.Queue.Capacity),
	)

	// Initialize sync scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(scheduler.Config{
			Enabled:          cfg.Scheduler.Enabled,
			CheckInterval:    cfg.Scheduler.CheckInterval,
			MaxDuePerCycle:   cfg.Scheduler.MaxDuePerCycle,
			CleanupInterval:  cfg.Scheduler.CleanupInterval,
			CleanupAfterDays: cfg.Scheduler.CleanupAfterDays,
			HealthInterval:   cfg.Scheduler.HealthInterval,
		}, scheduleRepo, jobRepo, jobService, jobQueue, db, log)
		if err != nil {
			log.Fatal("Failed to initialize sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := syncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(jobService)
	scheduleHandler := handler.NewScheduleHandler(scheduleRepo)
	mappingHandler := handler.NewMappingHandler(mappingService)
	tenantHandler := handler.NewTenantHandler(tenantRepo, box)
	systemHandler := handler.NewSystemHandler(jobQueue)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - generate/propagate request ID
	// 2. Recovery - catch panics
	// 3. Logger - log requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Bearer authentication for every management endpoint; system ping and
	// info stay open so load balancers can probe through the API prefix.
	r.Use(middleware.Auth(middleware.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		SkipPaths: []string{
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
	}))

	// Sync domain (manual triggers, job inspection)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/trigger", syncHandler.Trigger)
	syncRoutes.GET("/jobs", syncHandler.ListJobs)
	syncRoutes.GET("/jobs/:id", syncHandler.GetJob)

	// Schedule domain
	scheduleRoutes := router.NewDomainGroup("schedules", "/schedules")
	scheduleRoutes.POST("", scheduleHandler.Create)
	scheduleRoutes.GET("", scheduleHandler.List)
	scheduleRoutes.GET("/:id", scheduleHandler.GetByID)
	scheduleRoutes.PUT("/:id", scheduleHandler.Update)
	scheduleRoutes.DELETE("/:id", scheduleHandler.Delete)
	scheduleRoutes.POST("/:id/enable", scheduleHandler.Enable)
	scheduleRoutes.POST("/:id/disable", scheduleHandler.Disable)

	// Mapping domain (identity mappings between source and sink)
	mappingRoutes := router.NewDomainGroup("mappings", "/mappings")
	mappingRoutes.GET("/entities", mappingHandler.ListEntities)
	mappingRoutes.POST("/entities", mappingHandler.CreateEntity)
	mappingRoutes.GET("/entities/stats", mappingHandler.EntityStats)
	mappingRoutes.DELETE("/entities/:kind/:source_id", mappingHandler.DeleteEntity)
	mappingRoutes.GET("/products", mappingHandler.ListProducts)
	mappingRoutes.GET("/products/stats", mappingHandler.ProductStats)
	mappingRoutes.DELETE("/products/:variation_id", mappingHandler.DeleteProduct)

	// Tenant domain
	tenantRoutes := router.NewDomainGroup("tenants", "/tenants")
	tenantRoutes.POST("", tenantHandler.Create)
	tenantRoutes.GET("", tenantHandler.List)
	tenantRoutes.GET("/:id", tenantHandler.GetByID)
	tenantRoutes.PUT("/:id", tenantHandler.Update)
	tenantRoutes.POST("/:id/activate", tenantHandler.Activate)
	tenantRoutes.POST("/:id/deactivate", tenantHandler.Deactivate)

	// System domain
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/queue", systemHandler.GetQueueStats)

	r.Register(syncRoutes).
		Register(scheduleRoutes).
		Register(mappingRoutes).
		Register(tenantRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
