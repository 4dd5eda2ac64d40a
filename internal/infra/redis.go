package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisOpTimeout   = 2 * time.Second
)

// RedisOption tweaks the parsed client options before connecting.
type RedisOption func(*redis.Options)

// WithClientName labels the connection so it shows up in CLIENT LIST.
func WithClientName(name string) RedisOption {
	return func(o *redis.Options) { o.ClientName = name }
}

// NewRedisClient parses url, applies opts and pings the server. Idempotency
// and login throttling sit on the request path, so slow commands time out
// quickly instead of stalling handlers.
func NewRedisClient(ctx context.Context, url string, opts ...RedisOption) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = redisDialTimeout
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisOpTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = redisOpTimeout
	}
	for _, apply := range opts {
		apply(opt)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return client, nil
}
