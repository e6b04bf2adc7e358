package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classgrid-api/api/swagger"
	"github.com/noah-isme/classgrid-api/internal/handler"
	internalmiddleware "github.com/noah-isme/classgrid-api/internal/middleware"
	"github.com/noah-isme/classgrid-api/internal/repository"
	"github.com/noah-isme/classgrid-api/internal/scheduler"
	"github.com/noah-isme/classgrid-api/internal/service"
	"github.com/noah-isme/classgrid-api/pkg/cache"
	"github.com/noah-isme/classgrid-api/pkg/config"
	"github.com/noah-isme/classgrid-api/pkg/database"
	"github.com/noah-isme/classgrid-api/pkg/jobs"
	"github.com/noah-isme/classgrid-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classgrid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classgrid-api/pkg/middleware/requestid"
	"github.com/noah-isme/classgrid-api/pkg/storage"
)

// @title ClassGrid API
// @version 1.0.0
// @description Course section scheduling: proposals, optimization, exports and versioned runs.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, proposals stay in memory only", zap.Error(err))
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		checks["redis"] = handler.PingFunc(repo.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	generator := service.NewScheduleGeneratorService(
		repository.NewCatalogRepository(db),
		repository.NewScheduleRunRepository(db),
		repository.NewScheduleRunAssignmentRepository(db),
		db,
		cacheSvc,
		metrics,
		validate,
		logr.Named("scheduler"),
		generatorConfig(cfg.Scheduler),
	)

	queue := jobs.NewQueue("schedule-optimize", generator.HandleOptimizeJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.Buffer,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr.Named("jobs"),
	})
	generator.SetDispatcher(queue)
	queue.Start(ctx)
	defer queue.Stop()

	var exporter *service.ExportService
	var localExports *storage.LocalStorage
	if cfg.Exports.Enabled {
		provider, local, err := newStorage(cfg.Exports)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		localExports = local
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter = service.NewExportService(generator, provider, signer, metrics,
			service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr.Named("exports"))
	}

	go sweep(ctx, logr, generator, localExports, cfg.Exports.SignedURLTTL)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	var scheduleHandler *handler.ScheduleGeneratorHandler
	if exporter != nil {
		scheduleHandler = handler.NewScheduleGeneratorHandler(generator, exporter)
	} else {
		scheduleHandler = handler.NewScheduleGeneratorHandler(generator, nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.GET("/schedules/exports/:token", scheduleHandler.Download)
	if cfg.Scheduler.Enabled {
		secured := api.Group("/schedules")
		secured.Use(internalmiddleware.JWT(authSvc))
		handler.RegisterScheduleRoutes(secured, scheduleHandler)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func generatorConfig(cfg config.SchedulerConfig) service.ScheduleGeneratorConfig {
	return service.ScheduleGeneratorConfig{
		ProposalTTL: cfg.ProposalTTL,
		CacheTTL:    cfg.CacheTTL,
		Weights: scheduler.Weights{
			Preference:  cfg.WeightPref,
			Utilization: cfg.WeightUtil,
			Balance:     cfg.WeightBalance,
		},
		Budget: scheduler.Budget{
			MaxSteps:     cfg.MaxSteps,
			MaxDepth:     cfg.MaxDepth,
			MaxDisplaced: cfg.MaxDisplaced,
			Iterations:   cfg.Iterations,
			TimeLimit:    cfg.TimeLimit,
			Seed:         cfg.Seed,
		},
		Workers:           cfg.Workers,
		OptimizeByDefault: cfg.OptimizeByDefault,
	}
}

func newStorage(cfg config.ExportsConfig) (storage.Provider, *storage.LocalStorage, error) {
	if cfg.Provider == config.StorageProviderS3 {
		s3, err := storage.NewS3Storage(storage.S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		return s3, nil, err
	}
	local, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

// sweep drops expired proposals and, for local storage, export files whose
// links can no longer be valid.
func sweep(ctx context.Context, logr *zap.Logger, generator *service.ScheduleGeneratorService, local *storage.LocalStorage, linkTTL time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := generator.SweepExpired(); n > 0 {
				logr.Debug("expired proposals dropped", zap.Int("count", n))
			}
			if local == nil {
				continue
			}
			removed, err := local.CleanupOlderThan(linkTTL)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("stale exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
