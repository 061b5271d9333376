package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client from a redis:// URL.
// Falls back to localhost defaults when the URL cannot be parsed.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return redis.NewClient(opts)
}

// PingRedis tests the Redis connection
func PingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
