package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/hazemk/divvy/internal/config"
)

// NewRedis connects to Redis. Returns nil when no address is configured
// or the server is unreachable; callers treat a nil client as caching
// disabled.
func NewRedis(cfg *config.Config, log *logrus.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, balance caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, balance caching disabled")
		client.Close()
		return nil
	}

	return client
}
