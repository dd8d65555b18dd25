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

	_ "github.com/noah-isme/turma-scheduler/api/swagger"
	"github.com/noah-isme/turma-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/turma-scheduler/internal/middleware"
	"github.com/noah-isme/turma-scheduler/internal/repository"
	"github.com/noah-isme/turma-scheduler/internal/service"
	"github.com/noah-isme/turma-scheduler/pkg/cache"
	"github.com/noah-isme/turma-scheduler/pkg/config"
	"github.com/noah-isme/turma-scheduler/pkg/database"
	"github.com/noah-isme/turma-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/turma-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/turma-scheduler/pkg/middleware/requestid"
)

// @title Turma Scheduler API
// @version 1.0.0
// @description Availability, suggestions and atomic bookings for cohort timetables.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	window := service.NewSchedulingWindow(cfg.Scheduling)

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.AvailabilityTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	availabilityRepo := repository.NewAvailabilityRepository(db)
	entryRepo := repository.NewScheduleEntryRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	qualificationRepo := repository.NewQualificationRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, cacheSvc, cfg.Cache.AvailabilityTTL, window, validate, logr)
	progressSvc := service.NewProgressService(curriculumRepo, cacheSvc, cfg.Cache.ProgressTTL, validate, logr)
	conflicts := service.NewConflictChecker(entryRepo, availabilitySvc, window, logr)
	tiers := service.NewTierGate(progressSvc)
	suggestionSvc := service.NewSuggestionService(progressSvc, qualificationRepo, entryRepo, availabilitySvc, window, metrics, validate, logr)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		Entries:        entryRepo,
		Catalog:        catalogRepo,
		Qualifications: qualificationRepo,
		Conflicts:      conflicts,
		Tiers:          tiers,
		Progress:       progressSvc,
		Tx:             db,
		Window:         window,
		Metrics:        metrics,
	}, validate, logr)
	exportSvc := service.NewExportService(bookingSvc, nil, nil, logr)
	tokenSvc := service.NewTokenService(cfg.JWT)

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Probe{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})

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

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Suggestions:  handler.NewSuggestionHandler(suggestionSvc),
		Bookings:     handler.NewBookingHandler(bookingSvc, exportSvc),
		Progress:     handler.NewProgressHandler(progressSvc),
	}, internalmiddleware.JWT(tokenSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", window.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
