package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// OpenRedis connects to Redis and verifies the connection with a ping.
func OpenRedis(ctx context.Context, address string, databaseIndex int, logger *zap.Logger) (*redis.Client, error) {
	if address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   databaseIndex,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", address, err)
	}

	if logger != nil {
		logger.Info("redis initialized", zap.String("address", address), zap.Int("db", databaseIndex))
	}

	return client, nil
}
