// Package main runs the recording pipeline HTTP server with graceful shutdown.
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

	"github.com/vidnote/backend/config"
	"github.com/vidnote/backend/internal/middleware"
	"github.com/vidnote/backend/internal/recordings"
	"github.com/vidnote/backend/internal/transcode"
	"github.com/vidnote/backend/internal/worker"
	"github.com/vidnote/backend/pkg/database"
	"github.com/vidnote/backend/pkg/queue"
	"github.com/vidnote/backend/pkg/redis"
	"github.com/vidnote/backend/pkg/response"
	"github.com/vidnote/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var registry recordings.Registry
	if cfg.Database.Enabled() {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		registry = recordings.NewRepository(pool)
	} else {
		logger.Warn("no database configured, using in-memory registry")
		registry = recordings.NewMemoryRegistry()
	}

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

	transcoder := transcode.New(cfg.Transcode.FFmpegBinary, nil, logger)
	processor := worker.NewProcessor(registry, store, transcoder, archiver, logger)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// With Redis configured, submissions are queued for the standalone worker
	// binary; otherwise each submission runs on its own goroutine here.
	var scheduler recordings.Scheduler
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		scheduler = worker.NewQueueScheduler(queue.NewQueue(rdb.Client, logger))
		logger.Info("transcode dispatch via redis queue")
	} else {
		scheduler = worker.NewLocalScheduler(workerCtx, processor, logger)
		logger.Info("transcode dispatch in-process")
	}

	service := recordings.NewService(registry, store, scheduler, logger)
	handler := recordings.NewHandler(service, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	handler.Register(router)

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

	workerCancel()
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
