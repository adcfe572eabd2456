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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/genplan/genplan-web/api/swagger"
	"github.com/genplan/genplan-web/internal/handler"
	"github.com/genplan/genplan-web/internal/repository"
	"github.com/genplan/genplan-web/internal/router"
	"github.com/genplan/genplan-web/internal/service"
	"github.com/genplan/genplan-web/internal/web"
	"github.com/genplan/genplan-web/pkg/cache"
	"github.com/genplan/genplan-web/pkg/config"
	"github.com/genplan/genplan-web/pkg/export"
	"github.com/genplan/genplan-web/pkg/jobs"
	"github.com/genplan/genplan-web/pkg/logger"
	"github.com/genplan/genplan-web/pkg/sharelink"
)

// @title GenPlan Web API
// @version 1.0.0
// @description Timetable grid, exports and schedule generation in front of the GenPlan API
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var cacheRepo service.CacheRepository
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		repo := repository.NewCacheRepository(client, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		checks["redis"] = redisCheck(client)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)

	upstream := repository.NewGenPlanRepository(cfg.Upstream.BaseURL, repository.DefaultUpstreamHTTPClient(cfg.Upstream.Timeout), metrics, logr)
	checks["upstream"] = upstream.Ping

	validate := validator.New()
	timetableSvc := service.NewTimetableService(service.TimetableServiceParams{
		Upstream:  upstream,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.TimetableServiceConfig{
			CacheTTL:        cfg.Timetable.CacheTTL,
			MemoSize:        cfg.Timetable.MemoSize,
			DefaultBuilding: cfg.Timetable.DefaultBuilding,
		},
	})
	exportSvc := service.NewExportService(
		timetableSvc,
		cacheSvc,
		sharelink.NewSigner(cfg.ShareLinks.Secret, cfg.ShareLinks.TTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix},
		logr,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
	)

	// Generation jobs outlive the request that queued them, so the upstream
	// client for them only carries the job timeout.
	generationUpstream := repository.NewGenPlanRepository(cfg.Upstream.BaseURL, repository.DefaultUpstreamHTTPClient(0), metrics, logr)
	store := service.NewGenerationStore(cfg.Generation.JobTTL)
	worker := service.NewGenerationWorker(generationUpstream, store, timetableSvc, metrics, logr, service.GenerationConfig{
		JobTTL:     cfg.Generation.JobTTL,
		Timeout:    cfg.Generation.Timeout,
		MaxRetries: cfg.Generation.Retries,
	})
	queue := jobs.NewQueue("schedule-generation", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Generation.Workers,
		MaxRetries: cfg.Generation.Retries,
		RetryDelay: cfg.Generation.RetryDelay,
		Logger:     logr,
		OnGiveUp:   worker.GiveUp,
	})
	queue.Start(ctx)
	generationSvc := service.NewGenerationService(generationUpstream, queue, store, timetableSvc, validate, logr)

	templates, err := web.Templates()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	engine := router.New(router.Dependencies{
		Config:    cfg,
		Logger:    logr,
		Metrics:   metrics,
		Auth:      service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret}),
		Templates: templates,
		Timetable: handler.NewTimetableHandler(timetableSvc, exportSvc),
		Generator: handler.NewScheduleGeneratorHandler(generationSvc),
		Probes:    handler.NewMetricsHandler(metrics, checks),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http shutdown error", zap.Error(err))
		}
	}()

	logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("server failed", zap.Error(err))
	}
	queue.Stop()
	logr.Info("server stopped")
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
