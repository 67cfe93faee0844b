// Package cache keeps the serialized category listing in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"catalog-service/internal/serializer"
)

const (
	categoryListingKey   = "catalog:categories"
	listingGenerationKey = "catalog:categories:generation"
)

// listingEntry is the stored value: the listing and the generation it was
// built under.
type listingEntry struct {
	Generation int64                               `json:"generation"`
	Listing    []serializer.CategoryRepresentation `json:"listing"`
}

// RedisListingCache implements catalog.ListingCache on top of Redis.
//
// Every invalidation increments a generation counter. An entry is served only
// while the generation it was built under is still current, so a listing read
// before a write and stored after it is never returned.
type RedisListingCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisListingCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisListingCache {
	return &RedisListingCache{client: client, ttl: ttl, logger: logger}
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// GetCategoryListing returns the cached listing and the current generation.
// A missing, stale or undecodable entry is reported as a miss.
func (c *RedisListingCache) GetCategoryListing(ctx context.Context) ([]serializer.CategoryRepresentation, int64, bool, error) {
	values, err := c.client.MGet(ctx, listingGenerationKey, categoryListingKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("cache: MGET %s failed: %w", categoryListingKey, err)
	}

	var generation int64
	if raw, ok := values[0].(string); ok {
		generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, false, fmt.Errorf("cache: bad generation %q: %w", raw, err)
		}
	}

	raw, ok := values[1].(string)
	if !ok {
		return nil, generation, false, nil
	}
	var entry listingEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("dropping undecodable category listing", zap.Error(err))
		if err := c.client.Del(ctx, categoryListingKey).Err(); err != nil {
			c.logger.Warn("redis DEL failed", zap.Error(err))
		}
		return nil, generation, false, nil
	}
	if entry.Generation != generation {
		return nil, generation, false, nil
	}
	return entry.Listing, generation, true, nil
}

// SetCategoryListing stores listing as built under generation.
func (c *RedisListingCache) SetCategoryListing(ctx context.Context, generation int64, listing []serializer.CategoryRepresentation) error {
	data, err := json.Marshal(listingEntry{Generation: generation, Listing: listing})
	if err != nil {
		return fmt.Errorf("cache: failed to encode category listing: %w", err)
	}
	if err := c.client.Set(ctx, categoryListingKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: SET %s failed: %w", categoryListingKey, err)
	}
	return nil
}

// InvalidateCategoryListing advances the generation and drops the entry.
func (c *RedisListingCache) InvalidateCategoryListing(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, listingGenerationKey)
		pipe.Del(ctx, categoryListingKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: invalidate %s failed: %w", categoryListingKey, err)
	}
	return nil
}
