package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// Options are the connection settings for the lifecycle bus and job queue.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps the go-redis client shared by the lifecycle bus and the archive queue.
type Client struct {
	*redis.Client
	addr   string
	logger *zap.Logger
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	c := &Client{Client: rdb, addr: opts.Addr, logger: logger}
	if err := c.Healthy(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return c, nil
}

// Healthy pings the server with a short deadline.
func (c *Client) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}
