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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/GeorgePierce1984/teachlink-api/api/swagger"
	"github.com/GeorgePierce1984/teachlink-api/internal/handler"
	"github.com/GeorgePierce1984/teachlink-api/internal/middleware"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	"github.com/GeorgePierce1984/teachlink-api/internal/repository"
	"github.com/GeorgePierce1984/teachlink-api/internal/service"
	"github.com/GeorgePierce1984/teachlink-api/pkg/cache"
	"github.com/GeorgePierce1984/teachlink-api/pkg/config"
	"github.com/GeorgePierce1984/teachlink-api/pkg/database"
	"github.com/GeorgePierce1984/teachlink-api/pkg/flight"
	"github.com/GeorgePierce1984/teachlink-api/pkg/logger"
	corsmiddleware "github.com/GeorgePierce1984/teachlink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/GeorgePierce1984/teachlink-api/pkg/middleware/requestid"
	"github.com/GeorgePierce1984/teachlink-api/pkg/storage"
)

// @title TeachLink API
// @version 1.0.0
// @description Application lifecycle and interview negotiation API
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	documentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}

	applicationRepo := repository.NewApplicationRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	guard := flight.NewGuard()
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	notifications := service.NewNotificationService(nil, service.NotificationQueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
	}, logr)
	if cfg.Notifications.Enabled {
		notifications.Start(context.Background())
		defer notifications.Stop()
	}

	authService := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: "teachlink-api",
	})

	applicationService := service.NewApplicationService(applicationRepo, interviewRepo, noteRepo, logr,
		service.WithApplicationActivityLog(activityRepo),
		service.WithApplicationNotifier(notifications),
		service.WithApplicationGuard(guard),
		service.WithApplicationMetrics(metrics),
	)

	interviewService := service.NewInterviewService(interviewRepo, applicationRepo, logr,
		service.WithInterviewActivityLog(activityRepo),
		service.WithInterviewNotifier(notifications),
		service.WithInterviewGuard(guard),
		service.WithInterviewMetrics(metrics),
	)

	timelineService := service.NewTimelineService(applicationRepo, logr)

	noteService := service.NewNoteService(noteRepo, applicationRepo, logr,
		service.WithNoteCache(cacheRepo, cfg.Notes.CacheTTL),
		service.WithNoteActivityLog(activityRepo),
		service.WithNoteGuard(guard),
		service.WithNoteMetrics(metrics),
	)

	accessService := service.NewAccessService(subscriptionRepo, cfg.Subscriptions.Enforced, logr,
		service.WithAccessCache(cacheRepo, cfg.Subscriptions.CacheTTL),
		service.WithAccessMetrics(metrics),
	)

	documentService := service.NewDocumentService(applicationRepo, documentStore, logr,
		service.WithDocumentSigner(signer),
		service.WithDocumentActivityLog(activityRepo),
	)

	authHandler := handler.NewAuthHandler(authService)
	applicationHandler := handler.NewApplicationHandler(applicationService, timelineService)
	interviewHandler := handler.NewInterviewHandler(interviewService)
	noteHandler := handler.NewNoteHandler(noteService)
	documentHandler := handler.NewDocumentHandler(documentService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	// Signed download links carry their own authorization.
	api.GET("/downloads", documentHandler.Redeem)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.Use(middleware.SubscriptionGate(accessService))
	authed.Use(middleware.WriteTimeout(cfg.Requests.WriteTimeout))
	authed.Use(middleware.Audit(activityRepo, logr))

	authed.GET("/applications/:id", applicationHandler.Get)
	authed.GET("/jobs/:jobId/applications", applicationHandler.ListByJob)
	authed.GET("/applications/:id/timeline", applicationHandler.Timeline)

	authed.PATCH("/applications/:id/status",
		middleware.RequireRoles(models.RoleSchool), applicationHandler.UpdateStatus)

	authed.POST("/applications/:id/interview-request",
		middleware.RequireRoles(models.RoleSchool), interviewHandler.SendInvite)
	authed.PATCH("/applications/:id/interview-response",
		middleware.RequireRoles(models.RoleTeacher), interviewHandler.Respond)
	authed.PATCH("/applications/:id/interview-alternative-response",
		middleware.RequireRoles(models.RoleSchool), interviewHandler.RespondToAlternative)

	authed.GET("/applications/:id/notes", noteHandler.List)
	authed.POST("/applications/:id/notes",
		middleware.RequireRoles(models.RoleSchool), noteHandler.Add)

	authed.GET("/applications/:id/download", documentHandler.Download)
	authed.POST("/applications/:id/download-link", documentHandler.IssueLink)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout: 15 * time.Second,
		// Generous so document downloads are not cut off; mutating calls are
		// bounded per request by the WriteTimeout middleware.
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
