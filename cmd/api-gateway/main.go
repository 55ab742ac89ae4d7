package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/learnhub-api/api/swagger"
	"github.com/noah-isme/learnhub-api/internal/handler"
	"github.com/noah-isme/learnhub-api/internal/middleware"
	"github.com/noah-isme/learnhub-api/internal/models"
	"github.com/noah-isme/learnhub-api/internal/repository"
	"github.com/noah-isme/learnhub-api/internal/service"
	"github.com/noah-isme/learnhub-api/pkg/cache"
	"github.com/noah-isme/learnhub-api/pkg/config"
	"github.com/noah-isme/learnhub-api/pkg/database"
	"github.com/noah-isme/learnhub-api/pkg/export"
	"github.com/noah-isme/learnhub-api/pkg/jobs"
	"github.com/noah-isme/learnhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/learnhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learnhub-api/pkg/middleware/requestid"
	"github.com/noah-isme/learnhub-api/pkg/notify"
	"github.com/noah-isme/learnhub-api/pkg/security"
)

// @title LearnHub API
// @version 1.0.0
// @description Accounts, course tasks and graded submissions
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.TaskCache.Enabled {
		redisClient, err = cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, task cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notifier, notifyQueue := notify.NewQueueNotifier(notify.NewLogNotifier(logr), jobs.QueueConfig{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
		Logger:     logr,
	})
	// Outlives the signal context so mail enqueued by requests still
	// draining during shutdown is delivered; Stop runs after Shutdown.
	notifyQueue.Start(context.Background())

	codes := service.NewVerificationStore(notifier, cfg.Verification.CodeTTL, logr)
	metricsSvc.TrackPendingVerifications(codes.Len)

	hasher := security.NewBcryptHasher(0)
	sessions := service.NewSessionIssuer(security.NewJWTSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration))
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.TaskCache.TTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, codes, hasher, sessions, notifier, metricsSvc, validate, logr, service.AuthConfig{AccountCodeTTL: cfg.Verification.CodeTTL})
	directory := service.NewAccountDirectory(userRepo, hasher, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, courseRepo, cacheSvc, cfg.TaskCache.TTL, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, taskRepo, userRepo, export.NewRenderer(), metricsSvc, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.CallerFields))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.ResponseMeta())

	registerRoutes(r, cfg, routeDeps{
		auth:        handler.NewAuthHandler(authSvc),
		users:       handler.NewUserHandler(directory),
		tasks:       handler.NewTaskHandler(taskSvc),
		submissions: handler.NewSubmissionHandler(submissionSvc),
		metrics:     handler.NewMetricsHandler(metricsSvc, db, cacheRepo),
		tokens:      authSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		codes.Run(ctx, cfg.Verification.SweepInterval)
	}()
	go func() {
		defer wg.Done()
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("error during server shutdown", zap.Error(err))
	}
	notifyQueue.Stop()

	wg.Wait()
	logr.Info("shutdown complete")
}

type routeDeps struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	tasks       *handler.TaskHandler
	submissions *handler.SubmissionHandler
	metrics     *handler.MetricsHandler
	tokens      middleware.TokenValidator
}

func registerRoutes(r *gin.Engine, cfg *config.Config, d routeDeps) {
	r.GET("/health", d.metrics.Health)
	r.GET("/ready", d.metrics.Ready)
	r.GET("/metrics", d.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	jwt := middleware.JWT(d.tokens)
	admin := middleware.RequireRoles(models.RoleAdmin)
	institution := middleware.RequireRoles(models.RoleInstitution)
	student := middleware.RequireRoles(models.RoleStudent)

	auth := api.Group("/auth")
	auth.POST("/send-code", d.auth.SendCode)
	auth.POST("/register", d.auth.Register)
	auth.POST("/login", d.auth.Login)
	auth.GET("/verify-email", d.auth.VerifyEmail)
	auth.POST("/resend-verification", d.auth.ResendVerification)
	auth.GET("/me", jwt, d.auth.Me)

	users := api.Group("/users", jwt, admin)
	users.GET("", d.users.List)
	users.POST("", d.users.Create)
	users.GET("/:id", d.users.Get)
	users.PUT("/:id", d.users.Update)
	users.DELETE("/:id", d.users.Delete)
	users.PUT("/:id/ban", d.users.Ban)
	users.PUT("/:id/unban", d.users.Unban)

	tasks := api.Group("/tasks", jwt)
	tasks.POST("", institution, d.tasks.Create)
	tasks.GET("/my", institution, d.tasks.ListMine)
	tasks.GET("/course/:courseId", d.tasks.ListByCourse)
	tasks.GET("/:id", d.tasks.Get)
	tasks.PUT("/:id", institution, d.tasks.Update)
	tasks.DELETE("/:id", institution, d.tasks.Delete)
	tasks.POST("/:id/submissions", student, d.submissions.Submit)
	tasks.GET("/:id/submissions", institution, d.submissions.ListForTask)
	tasks.GET("/:id/grades/export", institution, d.submissions.ExportGrades)

	submissions := api.Group("/submissions", jwt)
	submissions.GET("/my", student, d.submissions.ListMine)
	submissions.GET("/:id", d.submissions.Get)
	submissions.PUT("/:id/grade", institution, d.submissions.Grade)

	api.GET("/metrics/summary", jwt, admin, d.metrics.Summary)
}
