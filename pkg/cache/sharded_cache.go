package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// ShardedPriceCache holds the latest SOL-per-token price per token address,
// sharded to keep tick ingestion and strategy reads from contending.
type ShardedPriceCache struct {
	shards [numShards]*priceShard
}

type priceShard struct {
	mu    sync.RWMutex
	items map[string]priceEntry
}

type priceEntry struct {
	price     float64
	updatedAt time.Time
}

// NewShardedPriceCache creates a new sharded cache.
func NewShardedPriceCache() *ShardedPriceCache {
	c := &ShardedPriceCache{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &priceShard{
			items: make(map[string]priceEntry),
		}
	}
	return c
}

func (c *ShardedPriceCache) getShard(key string) *priceShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores a price for a token address.
func (c *ShardedPriceCache) Set(token string, price float64) {
	shard := c.getShard(token)
	shard.mu.Lock()
	shard.items[token] = priceEntry{
		price:     price,
		updatedAt: time.Now(),
	}
	shard.mu.Unlock()
}

// Get retrieves a price for a token address.
func (c *ShardedPriceCache) Get(token string) (float64, bool) {
	shard := c.getShard(token)
	shard.mu.RLock()
	entry, ok := shard.items[token]
	shard.mu.RUnlock()
	return entry.price, ok
}

// Cleanup removes entries older than maxAge, returning how many were dropped.
func (c *ShardedPriceCache) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, shard := range c.shards {
		shard.mu.Lock()
		for token, entry := range shard.items {
			if entry.updatedAt.Before(cutoff) {
				delete(shard.items, token)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// CacheStats summarizes the cache for the status endpoint.
type CacheStats struct {
	TotalItems       int     `json:"total_items"`
	OldestAgeSeconds float64 `json:"oldest_age_seconds"`
}

// Stats returns the tracked token count and the age of the stalest price.
func (c *ShardedPriceCache) Stats() CacheStats {
	stats := CacheStats{}
	var oldest time.Time

	for _, shard := range c.shards {
		shard.mu.RLock()
		stats.TotalItems += len(shard.items)
		for _, entry := range shard.items {
			if oldest.IsZero() || entry.updatedAt.Before(oldest) {
				oldest = entry.updatedAt
			}
		}
		shard.mu.RUnlock()
	}

	if !oldest.IsZero() {
		stats.OldestAgeSeconds = time.Since(oldest).Seconds()
	}
	return stats
}
