package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-swap-api/api/swagger"
	"github.com/noah-isme/sma-swap-api/internal/handler"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	"github.com/noah-isme/sma-swap-api/internal/service"
	"github.com/noah-isme/sma-swap-api/pkg/cache"
	"github.com/noah-isme/sma-swap-api/pkg/config"
	"github.com/noah-isme/sma-swap-api/pkg/database"
	"github.com/noah-isme/sma-swap-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-swap-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-swap-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-swap-api/pkg/observability"
)

// @title School Swap API
// @version 1.0.0
// @description Timetables, colleague availability and class swap matching for teachers
// @BasePath /api/v1
// @schemes http
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

	flushSentry, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		observability.CaptureErr(err)
		logr.Error("server exited", zap.Error(err))
		flushSentry()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	checks := map[string]handler.Pinger{"database": db}
	if cfg.Availability.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("availability cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			checks["redis"] = handler.PingerFunc(cacheRepo.Ping)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.CacheTTL, logr, cacheRepo.Enabled())

	validate := validator.New()

	classRepo := repository.NewClassRepository(db)
	scheduleRepo := repository.NewTeacherScheduleRepository(db)
	swapRepo := repository.NewSwapRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	identity := service.NewIdentityService(service.IdentityConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	directory := service.NewDirectoryService(scheduleRepo, cacheSvc, logr, 0)
	notifications := service.NewNotificationService(service.NewLogNotifier(logr), service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	timetables := service.NewTimetableService(classRepo, scheduleRepo, cacheSvc, auditRepo, validate, logr)
	availability := service.NewAvailabilityService(scheduleRepo, cacheSvc, metrics, logr)
	swaps := service.NewSwapService(swapRepo, scheduleRepo, notifications, auditRepo, metrics, validate, logr)
	matching := service.NewMatchingService(swapRepo, notifications, auditRepo, metrics, logr)
	exports := service.NewExportService(timetables, cfg.Exports.PDFFontPath, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(observability.GinMiddleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.NewPolicy(cfg.CORS).Middleware())

	registerRoutes(r, cfg, routeDeps{
		identity:     identity,
		directory:    directory,
		metrics:      metrics,
		checks:       checks,
		timetables:   handler.NewTimetableHandler(timetables, exports, cfg.Imports.MaxFileSizeBytes),
		availability: handler.NewAvailabilityHandler(availability),
		swaps:        handler.NewSwapHandler(swaps, matching),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
