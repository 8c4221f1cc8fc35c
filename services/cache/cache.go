// Package cache keeps rendered reports in redis.
// entries are namespaced by a generation counter; every ledger write bumps it, so stale reports are never served.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/vidyaverse/core"
)

const (
	keyPrefix     = "vidyaverse:reports:"
	generationKey = keyPrefix + "generation"
	defaultTTL    = 10 * time.Minute
)

// ReportCache stores rendered report bodies. failures are logged, never returned: the cache is optional.
//
// Get resolves key against the generation current at lookup time and returns that slot along with the body.
// on a miss, the body built afterwards must be stored with Set(slot): if a write bumps the generation
// in between, the body lands in a slot nobody reads anymore. an empty slot means "do not store".
type ReportCache interface {
	Get(ctx context.Context, key string) (body []byte, slot string, ok bool)
	Set(ctx context.Context, slot string, body []byte)
	Invalidate(ctx context.Context)
}

// Key builds a cache key from the parts identifying a rendered report (kind, filter values, format).
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ ReportCache = (*RedisCache)(nil)

// NewRedisCache connects to redis; it fails with a *core.UpstreamUnavailable when redis does not answer.
func NewRedisCache(ctx context.Context, conf core.RedisConfig, logger core.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, core.NewUpstreamUnavailable("connecting to redis", err)
	}

	ttl := conf.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) slot(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", keyPrefix, gen, key), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, string, bool) {
	slot, err := c.slot(ctx, key)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("redis GET generation failed: %v", err), err)
		return nil, "", false
	}
	body, err := c.rdb.Get(ctx, slot).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn(fmt.Sprintf("redis GET %s failed: %v", slot, err), err)
		}
		return nil, slot, false
	}
	return body, slot, true
}

func (c *RedisCache) Set(ctx context.Context, slot string, body []byte) {
	if slot == "" {
		return
	}
	if err := c.rdb.Set(ctx, slot, body, c.ttl).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("redis SET %s failed: %v", slot, err), err)
	}
}

// Invalidate bumps the generation; entries of older generations expire on their own.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("redis INCR %s failed: %v", generationKey, err), err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// NopCache never stores anything; used when redis is not configured.
type NopCache struct{}

var _ ReportCache = NopCache{}

func (NopCache) Get(context.Context, string) ([]byte, string, bool) { return nil, "", false }
func (NopCache) Set(context.Context, string, []byte)                {}
func (NopCache) Invalidate(context.Context)                         {}
