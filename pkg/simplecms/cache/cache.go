// Package cache provides the process-wide resource cache backing the
// lifecycle service's cache-aside reads. It wraps a sharded in-process
// sturdyc client; the TTL is a safety net against missed invalidations, not
// the consistency mechanism — mutations invalidate scopes explicitly.
package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the cache sizing options.
type Config struct {
	// Capacity is the maximum number of entries the cache can hold.
	Capacity int

	// NumShards controls lock granularity under concurrent access.
	NumShards int

	// TTL is the optional entry lifetime. Entries are invalidated by scope
	// on every mutation; the TTL only bounds the damage of a missed scope.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is
	// full, between 1 and 100.
	EvictionPercentage int
}

// DefaultConfig returns sizing that suits a single-process CMS backend.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                15 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Cache is a sturdyc-backed implementation of the simplecms.Cache
// interface. Safe for concurrent use; a full or evicting cache degrades to
// misses, never to read failures.
type Cache struct {
	client *sturdyc.Client[any]
}

// New creates a cache from the given config, falling back to defaults for
// unset sizing fields.
func New(config Config) *Cache {
	def := DefaultConfig()
	if config.Capacity <= 0 {
		config.Capacity = def.Capacity
	}
	if config.NumShards <= 0 {
		config.NumShards = def.NumShards
	}
	if config.TTL <= 0 {
		config.TTL = def.TTL
	}
	if config.EvictionPercentage <= 0 || config.EvictionPercentage > 100 {
		config.EvictionPercentage = def.EvictionPercentage
	}

	return &Cache{
		client: sturdyc.New[any](config.Capacity, config.NumShards, config.TTL, config.EvictionPercentage),
	}
}

// Get returns the cached value for key, if any.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	return c.client.Get(key)
}

// Set stores value under key.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.client.Set(key, value)
}

// Delete drops key.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.client.Delete(key)
}

// DeleteAll drops every key of a mutation's invalidation set. Deletions are
// not atomic across keys; they only need to complete before the mutation is
// reported successful, which the synchronous call order guarantees.
func (c *Cache) DeleteAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		c.client.Delete(key)
	}
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	return c.client.Size()
}
