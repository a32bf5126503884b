package federated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisCertKey is the key under which certificates are shared.
const DefaultRedisCertKey = "senas-auth:firebase:certs"

// redisKV is the part of redis.Cmdable used by RedisCertCache.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCertCache shares fetched certificates between replicas. Redis errors
// are logged and treated as a cache miss.
type RedisCertCache struct {
	client redisKV
	key    string
	logger logging.Logger
}

func NewRedisCertCache(client redisKV, key string, logger logging.Logger) *RedisCertCache {
	if key == "" {
		key = DefaultRedisCertKey
	}
	return &RedisCertCache{client: client, key: key, logger: logger.With("module", "redis-cert-cache")}
}

func (c *RedisCertCache) Get(ctx context.Context) (map[string]string, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "redis get failed", "error", err)
		}
		return nil, false
	}

	var certs map[string]string
	if err := json.Unmarshal(raw, &certs); err != nil || len(certs) == 0 {
		c.logger.Warn(ctx, "discarding unreadable cached certs", "error", err)
		return nil, false
	}
	return certs, true
}

func (c *RedisCertCache) Set(ctx context.Context, certs map[string]string, ttl time.Duration) {
	raw, err := json.Marshal(certs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		c.logger.Warn(ctx, "redis set failed", "error", err)
	}
}

// NewRedisClient parses url, tunes the connection pool and checks the
// connection with a ping.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
