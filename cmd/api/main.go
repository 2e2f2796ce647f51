package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/studyrhythm/studyrhythm-api/api/swagger"
	"github.com/studyrhythm/studyrhythm-api/internal/handler"
	"github.com/studyrhythm/studyrhythm-api/internal/middleware"
	"github.com/studyrhythm/studyrhythm-api/internal/repository"
	"github.com/studyrhythm/studyrhythm-api/internal/service"
	"github.com/studyrhythm/studyrhythm-api/pkg/cache"
	"github.com/studyrhythm/studyrhythm-api/pkg/config"
	"github.com/studyrhythm/studyrhythm-api/pkg/database"
	"github.com/studyrhythm/studyrhythm-api/pkg/logger"
	corsmiddleware "github.com/studyrhythm/studyrhythm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyrhythm/studyrhythm-api/pkg/middleware/requestid"
	"github.com/studyrhythm/studyrhythm-api/pkg/storage"
)

// @title StudyRhythm API
// @version 1.0.0
// @description Personal study planning dashboard backend
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ProgressTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	var archiver *service.ExportArchiver
	if cfg.Exports.ArchiveEnabled {
		store, err := storage.NewLocalStorage(cfg.Exports.ArchiveDir)
		if err != nil {
			logr.Fatal("failed to init export archive storage", zap.Error(err))
		}
		archiver = service.NewExportArchiver(store, logr)
		archiver.Start(context.Background())
		defer archiver.Stop()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	examRepo := repository.NewExamRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studyrhythm-api",
	})
	subjectSvc := service.NewSubjectService(subjectRepo, cacheSvc, validate, logr)
	topicSvc := service.NewTopicService(topicRepo, subjectRepo, cacheSvc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, subjectRepo, topicRepo, cacheSvc, validate, logr)
	examSvc := service.NewExamService(examRepo, subjectRepo, topicRepo, validate, logr, cfg.Exams.UpcomingLimit)
	progressSvc := service.NewProgressService(subjectRepo, topicRepo, sessionRepo, cacheSvc, cfg.Cache.ProgressTTL, archiver, logr)
	statsSvc := service.NewStatsService(statsRepo, sessionRepo, cacheSvc, cfg.Cache.StatsTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	topicHandler := handler.NewTopicHandler(topicSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	examHandler := handler.NewExamHandler(examSvc)
	progressHandler := handler.NewProgressHandler(progressSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Dashboard reads tolerate anonymous callers and return empty data;
	// writes require a valid token.
	optional := middleware.OptionalJWT(authSvc)
	required := middleware.JWT(authSvc)

	api.GET("/subjects", optional, subjectHandler.List)
	api.POST("/subjects", required, subjectHandler.Create)
	api.GET("/subjects/:id", required, subjectHandler.Get)
	api.DELETE("/subjects/:id", required, subjectHandler.Delete)
	api.GET("/subjects/:id/topics", required, topicHandler.ListBySubject)
	api.POST("/subjects/:id/topics", required, topicHandler.Create)

	api.POST("/topics/:id/complete", required, topicHandler.Complete)
	api.DELETE("/topics/:id", required, topicHandler.Delete)

	api.GET("/sessions", optional, sessionHandler.List)
	api.POST("/sessions", required, sessionHandler.Create)
	api.GET("/sessions/today", optional, sessionHandler.ListToday)
	api.GET("/sessions/:id", required, sessionHandler.Get)
	api.DELETE("/sessions/:id", required, sessionHandler.Delete)
	api.POST("/sessions/:id/complete", required, sessionHandler.Complete)
	api.GET("/sessions/:id/topics", required, sessionHandler.ListTopics)
	api.POST("/sessions/:id/topics", required, sessionHandler.AttachTopic)

	api.GET("/exams", optional, examHandler.List)
	api.POST("/exams", required, examHandler.Create)
	api.GET("/exams/upcoming", optional, examHandler.ListUpcoming)
	api.GET("/exams/:id", required, examHandler.Get)
	api.DELETE("/exams/:id", required, examHandler.Delete)
	api.POST("/exams/:id/topics", required, examHandler.AttachTopic)

	api.GET("/progress", optional, progressHandler.Overview)
	api.GET("/progress/export", required, progressHandler.Export)
	api.GET("/stats", optional, statsHandler.Snapshot)
	api.GET("/stats/weekly", optional, statsHandler.Weekly)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
