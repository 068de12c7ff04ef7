// Package cache keeps the latest marshaled snapshot per list in Redis
// for the cache-first GetList path. Everything here is best-effort: a
// missing or failing Redis degrades to store reads, never to errors.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"simplist/internal/config"
	"simplist/pkg/logger"
)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client, or nil when REDIS_URL is
// unset or the connection failed.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		if cfg.RedisURL == "" {
			return
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Snapshots is the per-list snapshot cache.
type Snapshots struct {
	ttl time.Duration
}

func NewSnapshots() *Snapshots {
	return &Snapshots{ttl: time.Duration(config.Get().CacheTTL) * time.Second}
}

func key(listID string) string { return "list:" + listID }

// Get returns the cached raw snapshot. (nil, false) on miss or error.
func (s *Snapshots) Get(ctx context.Context, listID string) ([]byte, bool) {
	c := Client(ctx)
	if c == nil {
		return nil, false
	}
	b, err := c.Get(ctx, key(listID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get snapshot failed", "error", err, "list_id", listID)
		return nil, false
	}
	return b, true
}

// Set stores the raw snapshot with the configured TTL.
func (s *Snapshots) Set(ctx context.Context, listID string, raw []byte) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Set(ctx, key(listID), raw, s.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set snapshot failed", "error", err, "list_id", listID)
	}
}

// SetAsync stores the snapshot off the request path.
func (s *Snapshots) SetAsync(listID string, raw []byte) {
	go s.Set(context.Background(), listID, raw)
}

// Invalidate drops the snapshot so the next read goes to the store.
func (s *Snapshots) Invalidate(ctx context.Context, listID string) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Del(ctx, key(listID)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate snapshot failed", "error", err, "list_id", listID)
	}
}
