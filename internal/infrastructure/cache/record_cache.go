// Package cache provides Redis-backed read caches that sit outside the core
// write path. Caches subscribe to change events for invalidation; the core
// never waits on them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// ErrCacheMiss is returned when the requested key is not cached
var ErrCacheMiss = errors.New("cache miss")

// StatusSummary holds per-status record counts for one account and kind
type StatusSummary struct {
	AccountID  uuid.UUID      `json:"account_id"`
	Kind       string         `json:"kind"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
	ComputedAt time.Time      `json:"computed_at"`
}

// RedisRecordCache caches status summaries per account and kind
type RedisRecordCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRecordCache creates a cache backed by an existing Redis client
func NewRedisRecordCache(client *redis.Client, ttl time.Duration) *RedisRecordCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRecordCache{
		client:    client,
		keyPrefix: "sellerhub:summary:",
		ttl:       ttl,
	}
}

func (c *RedisRecordCache) key(accountID uuid.UUID, kind shared.EntityKind) string {
	return fmt.Sprintf("%s%s:%s", c.keyPrefix, accountID, kind)
}

// GetSummary returns the cached summary, or ErrCacheMiss
func (c *RedisRecordCache) GetSummary(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind) (*StatusSummary, error) {
	data, err := c.client.Get(ctx, c.key(accountID, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read summary cache: %w", err)
	}
	var summary StatusSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &summary, nil
}

// SetSummary stores the summary with the cache TTL
func (c *RedisRecordCache) SetSummary(ctx context.Context, summary *StatusSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	accountID := summary.AccountID
	kind := shared.EntityKind(summary.Kind)
	if err := c.client.Set(ctx, c.key(accountID, kind), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for one account and kind
func (c *RedisRecordCache) Invalidate(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind) error {
	return c.client.Del(ctx, c.key(accountID, kind)).Err()
}
