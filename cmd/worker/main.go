// Package main runs the background webhook delivery worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stride-coaching/backend/config"
	"github.com/stride-coaching/backend/internal/notifications"
	"github.com/stride-coaching/backend/internal/worker"
	"github.com/stride-coaching/backend/pkg/database"
	"github.com/stride-coaching/backend/pkg/queue"
	"github.com/stride-coaching/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET not set, deliveries are unsigned")
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

	logs := notifications.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	client := &http.Client{Timeout: time.Duration(cfg.Webhook.TimeoutSec) * time.Second}
	processor := worker.NewNotificationProcessor(logs, jobQueue, client, cfg.Webhook.Secret, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
