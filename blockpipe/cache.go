package blockpipe

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a bounded, read-through cache of recently decoded compression
// blocks keyed by (file, offset, size). It is purely an optimization: the
// pipeline's output is byte-identical with or without one, since every
// entry is a deterministic function of its key.
type Cache struct {
	tc *ttlcache.Cache[string, []byte]
}

// NewCache returns a Cache holding up to capacity decoded blocks, each
// expiring ttl after insertion.
func NewCache(capacity uint64, ttl time.Duration) *Cache {
	tc := ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](capacity),
		ttlcache.WithTTL[string, []byte](ttl),
	)
	go tc.Start()
	return &Cache{tc: tc}
}

// Close stops the cache's background eviction goroutine.
func (c *Cache) Close() {
	c.tc.Stop()
}

func (c *Cache) get(key string) ([]byte, bool) {
	item := c.tc.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *Cache) set(key string, value []byte) {
	c.tc.Set(key, value, ttlcache.DefaultTTL)
}
