// Package main runs the background job worker: recording metadata resolution,
// notification email delivery and attendance sync.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lms-live/backend/config"
	"github.com/lms-live/backend/internal/attendance"
	"github.com/lms-live/backend/internal/auth"
	"github.com/lms-live/backend/internal/batches"
	"github.com/lms-live/backend/internal/liveclass"
	"github.com/lms-live/backend/internal/notifications"
	"github.com/lms-live/backend/internal/resolver"
	"github.com/lms-live/backend/internal/worker"
	"github.com/lms-live/backend/internal/zoom"
	"github.com/lms-live/backend/pkg/crypto"
	"github.com/lms-live/backend/pkg/database"
	"github.com/lms-live/backend/pkg/queue"
	"github.com/lms-live/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	box, err := crypto.NewSecretBox(cfg.Secrets.RecordingKey)
	if err != nil {
		logger.Fatal("recording secret key", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	zoomClient := zoom.NewClient(cfg.Zoom, logger)

	classRepo := liveclass.NewRepository(pool)
	batchRepo := batches.NewRepository(pool)
	userRepo := auth.NewRepository(pool)
	notificationRepo := notifications.NewRepository(pool)
	notifier := notifications.NewService(batchRepo, userRepo, notificationRepo, jobQueue, classRepo, logger)

	processor := resolver.NewProcessor(classRepo, zoomClient, box, notifier, logger)
	mailer := notifications.NewMailer(cfg.Email, logger)
	syncer := attendance.NewSyncer(classRepo, zoomClient, attendance.NewRepository(pool), logger)

	w := worker.New(jobQueue, logger)
	w.Register(queue.JobTypeRecordingProcess, processor)
	w.Register(queue.JobTypeEmail, mailer)
	w.Register(queue.JobTypeAttendanceSync, syncer)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(workerCtx)
	go runDailyReminders(workerCtx, notifier, logger)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

// runDailyReminders fires class reminders once per day shortly after midnight.
func runDailyReminders(ctx context.Context, notifier *notifications.Service, logger *zap.Logger) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, now.Location()).AddDate(0, 0, 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if err := notifier.RemindToday(ctx, time.Now()); err != nil {
			logger.Error("daily reminders failed", zap.Error(err))
		}
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
