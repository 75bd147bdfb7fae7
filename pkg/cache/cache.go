// Package cache provides a Redis client with lifecycle coordination.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/lifecycle"
)

// System manages the Redis client and lifecycle coordination.
type System interface {
	// Client returns the underlying Redis client.
	Client() redis.UniversalClient
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type cache struct {
	client      redis.UniversalClient
	logger      *zap.Logger
	connTimeout time.Duration
}

// New creates a cache system. No connection is made until Start is called.
func New(cfg *Config, logger *zap.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.ConnTimeoutDuration(),
	})

	return &cache{
		client:      client,
		logger:      logger.With(zap.String("system", "cache"), zap.String("addr", cfg.Addr)),
		connTimeout: cfg.ConnTimeoutDuration(),
	}
}

func (c *cache) Client() redis.UniversalClient {
	return c.client
}

func (c *cache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup("cache", func() error {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 5 * c.connTimeout

		err := backoff.Retry(func() error {
			pingCtx, cancel := context.WithTimeout(lc.Context(), c.connTimeout)
			defer cancel()
			return c.client.Ping(pingCtx).Err()
		}, backoff.WithContext(bo, lc.Context()))
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		c.logger.Info("cache connection established")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", zap.Error(err))
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}
