// Package main runs the background job worker (post-session reconcile and archive upload).
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-live/showcase/config"
	"github.com/aura-live/showcase/internal/store"
	"github.com/aura-live/showcase/internal/worker"
	"github.com/aura-live/showcase/pkg/database"
	"github.com/aura-live/showcase/pkg/queue"
	"github.com/aura-live/showcase/pkg/redis"
	"github.com/aura-live/showcase/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Store.Driver != config.StorePostgres {
		logger.Fatal("worker requires STORE_DRIVER=postgres", zap.String("store", cfg.Store.Driver))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var uploader worker.Uploader
	if cfg.AWS.ArchiveBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArchiveBucket:        cfg.AWS.ArchiveBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		uploader = s3Client
	} else {
		logger.Warn("AWS_S3_ARCHIVE_BUCKET not set; sessions are reconciled but not archived")
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewSessionArchiveProcessor(store.NewPostgres(pool), uploader, jobQueue, logger)

	logger.Info("worker started")
	processor.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
