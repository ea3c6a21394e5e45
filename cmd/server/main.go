// Package main runs the live showcase HTTP server with the realtime coordinator and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/aura-live/showcase/config"
	"github.com/aura-live/showcase/internal/auth"
	"github.com/aura-live/showcase/internal/coordinator"
	"github.com/aura-live/showcase/internal/presence"
	"github.com/aura-live/showcase/internal/realtime"
	"github.com/aura-live/showcase/internal/store"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := deps{
		cfg:    cfg,
		logger: logger,
		jwt:    auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		hub:    realtime.NewHub(logger),
	}

	var rdb *redis.Client
	switch cfg.Store.Driver {
	case config.StoreMemory:
		d.store = store.NewMemory()
		d.users = auth.NewMemoryUsers()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		}, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		d.store = store.NewPostgres(pool)
		d.users = auth.NewRepository(pool)

		rdb, err = redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	if _, err := auth.EnsureAdmin(ctx, d.users, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name, logger); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	d.coord = coordinator.New(d.store, d.hub, presence.NewRegistry(), coordinator.Options{
		PersistTimeout: cfg.Realtime.PersistTimeout,
	}, logger)

	var lifecycle *realtime.RedisPubSub
	if rdb != nil {
		d.redisHealth = rdb.Healthy
		lifecycle = realtime.NewRedisPubSub(rdb.Client, logger)
		d.notifier = lifecycle
		d.archives = queue.NewQueue(rdb.Client, logger)
	} else {
		d.notifier = d.coord
	}

	if cfg.AWS.ArchiveBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ArchiveBucket:        cfg.AWS.ArchiveBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			d.links = s3Client
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(d),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if lifecycle != nil {
		g.Go(func() error {
			return lifecycle.SubscribeStatusChanges(gCtx, d.coord.HandleStatusChange)
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
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
