package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// redisClient holds the Redis client connection
var redisClient *redis.Client

// Init connects to Redis and sets the global client
func Init(redisURL string, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr))
	redisClient = client

	return client, nil
}

// Close closes the Redis client connection
func Close(logger *zap.Logger) error {
	if redisClient != nil {
		logger.Info("closing redis connection")
		err := redisClient.Close()
		redisClient = nil
		return err
	}
	return nil
}
