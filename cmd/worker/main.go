// Package main runs the standalone transcode worker (redis queue consumer).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidnote/backend/config"
	"github.com/vidnote/backend/internal/recordings"
	"github.com/vidnote/backend/internal/transcode"
	"github.com/vidnote/backend/internal/worker"
	"github.com/vidnote/backend/pkg/database"
	"github.com/vidnote/backend/pkg/queue"
	"github.com/vidnote/backend/pkg/redis"
	"github.com/vidnote/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if !cfg.Database.Enabled() {
		logger.Fatal("worker requires a database (set DATABASE_URL); the in-memory registry is per-process")
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("worker requires redis (set REDIS_ADDR)")
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

	store, err := storage.NewDisk(cfg.Storage.Root, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}

	var archiver *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.ArchiveBucket,
		}
		archiver, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 archive disabled", zap.Error(err))
		}
	}

	registry := recordings.NewRepository(pool)
	transcoder := transcode.New(cfg.Transcode.FFmpegBinary, nil, logger)
	processor := worker.NewProcessor(registry, store, transcoder, archiver, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx, jobQueue)
	logger.Info("transcode worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("transcode worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
