package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheConfig configures the optional shared signal cache. A zero
// Addr disables it.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisSignalCache shares GapDetector results across engine replicas so
// a fleet of retrieval-engine processes doesn't each rescan the same
// feedback window, grounded on the teacher's own go-redis dependency for
// its federation cache.
type RedisSignalCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSignalCache builds a cache when cfg.Addr is set; returns a nil
// cache and nil error when disabled, matching the optional-backend
// pattern the pack uses for Redis-backed caches.
func NewRedisSignalCache(cfg RedisCacheConfig) (*RedisSignalCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping signal cache: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSignalCache{client: client, ttl: ttl}, nil
}

// Get returns the cached signal list for key, if present and unexpired.
func (c *RedisSignalCache) Get(ctx context.Context, key string) ([]Signal, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached signals: %w", err)
	}
	var signals []Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, false, fmt.Errorf("parse cached signals: %w", err)
	}
	return signals, true, nil
}

// Set stores signals under key with the configured TTL.
func (c *RedisSignalCache) Set(ctx context.Context, key string, signals []Signal) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached signals: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisSignalCache) Close() error {
	return c.client.Close()
}
