// Package main runs the LMS live-class HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/internal/attendance"
	"github.com/lms-live/backend/internal/auth"
	"github.com/lms-live/backend/internal/batches"
	"github.com/lms-live/backend/internal/lessons"
	"github.com/lms-live/backend/internal/liveclass"
	"github.com/lms-live/backend/internal/middleware"
	"github.com/lms-live/backend/internal/notifications"
	"github.com/lms-live/backend/internal/webhook"
	"github.com/lms-live/backend/internal/zoom"
	"github.com/lms-live/backend/pkg/database"
	"github.com/lms-live/backend/pkg/queue"
	"github.com/lms-live/backend/pkg/redis"
	"github.com/lms-live/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	zoomClient := zoom.NewClient(cfg.Zoom, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Batches and content
	batchRepo := batches.NewRepository(pool)
	batchHandler := batches.NewHandler(batchRepo, logger)
	lessonRepo := lessons.NewRepository(pool)
	lessonHandler := lessons.NewHandler(lessonRepo, logger)

	// Live classes and notifications
	classRepo := liveclass.NewRepository(pool)
	notificationRepo := notifications.NewRepository(pool)
	notifier := notifications.NewService(batchRepo, authRepo, notificationRepo, jobQueue, classRepo, logger)
	notificationHandler := notifications.NewHandler(notificationRepo, notifier)
	authorizer := liveclass.NewPlaybackAuthorizer(batchRepo, lessonRepo, zoomClient, logger)
	classHandler := liveclass.NewHandler(classRepo, authorizer, zoomClient, notifier, cfg.Zoom, logger)

	// Attendance
	attendanceRepo := attendance.NewRepository(pool)
	attendanceHandler := attendance.NewHandler(attendanceRepo, jobQueue, logger)

	// Recording webhook (signature-verified in handler, never JWT)
	webhookHandler := webhook.NewHandler(cfg.Zoom.WebhookSecret, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Provider webhooks (no JWT; HMAC signature checked inside)
	router.POST("/webhooks/zoom", webhookHandler.Handle)
	router.OPTIONS("/webhooks/zoom", webhookHandler.Options)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (moderator only; for instructor assignment)
		api.GET("/users", middleware.RequireRole("moderator"), authHandler.List)

		// Batches
		api.POST("/batches", middleware.RequireRole("moderator"), batchHandler.Create)
		api.GET("/batches/:id", batchHandler.GetByID)
		api.POST("/batches/:id/enrollments", middleware.RequireRole("moderator"), batchHandler.Enroll)
		api.GET("/batches/:id/enrollments", middleware.RequireRole("moderator", "instructor"), batchHandler.ListEnrollments)
		api.DELETE("/batches/:id/enrollments/:userID", middleware.RequireRole("moderator"), batchHandler.Unenroll)
		api.POST("/batches/:id/instructors", middleware.RequireRole("moderator"), batchHandler.AddInstructor)

		// Courses and lessons
		api.POST("/courses", middleware.RequireRole("moderator", "instructor"), lessonHandler.CreateCourse)
		api.POST("/lessons", middleware.RequireRole("moderator", "instructor"), lessonHandler.CreateLesson)
		api.GET("/lessons/:id", lessonHandler.GetLesson)
		api.DELETE("/lessons/:id", middleware.RequireRole("moderator", "instructor"), lessonHandler.DeleteLesson)
		api.GET("/lessons/:id/recording", classHandler.LessonPlayback)

		// Live classes
		api.POST("/live-classes", middleware.RequireRole("moderator", "instructor"), classHandler.Create)
		api.GET("/live-classes/:id", classHandler.GetByID)
		api.GET("/batches/:id/live-classes", classHandler.ListByBatch)
		api.GET("/live-classes/:id/playback", classHandler.Playback)

		// Attendance
		api.POST("/live-classes/:id/attendance/sync", middleware.RequireRole("moderator", "instructor"), attendanceHandler.Sync)
		api.GET("/live-classes/:id/attendance", middleware.RequireRole("moderator", "instructor"), attendanceHandler.List)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/reminders", middleware.RequireRole("moderator"), notificationHandler.SendReminders)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
