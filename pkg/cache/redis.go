package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackguides/guides/pkg/log"
)

// Redis is a Cache backed by a redis server. Backend errors are logged and
// reported as misses; the cache is an optimization, never a dependency.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Cache = (*Redis)(nil)

// NewRedis builds a Cache from a redis URL such as
// redis://:password@host:6379/0. An empty or unparseable URL yields the nop
// cache so callers can pass configuration through untouched.
func NewRedis(url string, logger *slog.Logger) Cache {
	logger = log.Or(logger)
	if url == "" {
		return NewNop()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("invalid redis url, caching disabled", slog.String("err", err.Error()))
		return NewNop()
	}
	return &Redis{client: redis.NewClient(opts), logger: logger}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed", slog.String("key", key), slog.String("err", err.Error()))
		}
		return "", false
	}
	return val, true
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", slog.String("key", key), slog.String("err", err.Error()))
	}
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("cache delete failed", slog.String("key", key), slog.String("err", err.Error()))
	}
}
