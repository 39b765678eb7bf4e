package common

import (
	"context"
	"time"

	"fieldops/ledgersync/internal/config"
	"fieldops/ledgersync/internal/logging"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared client. A failed ping is logged but not
// fatal; the pool reconnects on its own.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	addr := cfg.Address()
	logging.Info("Initializing Redis client", "addr", addr, "db", cfg.DB)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("Failed to ping Redis", "addr", addr, "error", err)
		return client
	}

	logging.Info("Connected to Redis", "addr", addr)
	return client
}

// RedisPinger adapts a client to the health check's PingContext shape.
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
