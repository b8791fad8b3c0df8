package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
)

// #region model-cache

// ModelCache keeps built opponent models in Redis so repeated simulations of
// the same session skip the oracle. Keys are namespaced as
// "{prefix}:opponent:{session}".
type ModelCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// Config configures the cache.
type Config struct {
	Prefix string        // key prefix, default "ctwin"
	TTL    time.Duration // 0 = no expiry
}

// New creates a ModelCache over any go-redis client.
func New(client redis.Cmdable, config Config) *ModelCache {
	if config.Prefix == "" {
		config.Prefix = "ctwin"
	}
	return &ModelCache{client: client, prefix: config.Prefix, ttl: config.TTL}
}

// Dial connects to addr and checks it answers.
func Dial(ctx context.Context, addr string, config Config) (*ModelCache, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, config), client, nil
}

func (c *ModelCache) key(sessionID string) string {
	return fmt.Sprintf("%s:opponent:%s", c.prefix, sessionID)
}

// #endregion model-cache

// #region operations

// Get returns the cached model. ok is false on a miss.
func (c *ModelCache) Get(ctx context.Context, sessionID string) (opponent.Model, bool, error) {
	raw, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return opponent.Model{}, false, nil
	}
	if err != nil {
		return opponent.Model{}, false, fmt.Errorf("cache get: %w", err)
	}
	var m opponent.Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return opponent.Model{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return m, true, nil
}

// Put stores m under sessionID with the configured TTL.
func (c *ModelCache) Put(ctx context.Context, sessionID string, m opponent.Model) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(sessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate drops the cached model, e.g. after a new turn is recorded.
func (c *ModelCache) Invalidate(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// #endregion operations
