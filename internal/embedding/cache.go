package embedding

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"
)

// Cache wraps an Embedder with a TTL'd in-memory cache keyed by input
// text. Safe for concurrent use.
type Cache struct {
	u      Embedder
	mu     sync.Mutex
	data   map[string][]float32
	times  map[string]time.Time
	ttl    time.Duration
	hits   int
	misses int
}

func NewCache(u Embedder) *Cache {
	ttl := 3600
	if v := os.Getenv("LOSTFOUND_EMBED_CACHE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			ttl = n
		}
	}
	return &Cache{
		u:     u,
		data:  make(map[string][]float32),
		times: make(map[string]time.Time),
		ttl:   time.Duration(ttl) * time.Second,
	}
}

func (c *Cache) Dim() int { return c.u.Dim() }

func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if v, ok := c.data[text]; ok {
		if c.ttl == 0 || time.Since(c.times[text]) <= c.ttl {
			c.hits++
			c.mu.Unlock()
			return v, nil
		}
		delete(c.data, text)
		delete(c.times, text)
	}
	c.misses++
	c.mu.Unlock()

	v, err := c.u.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.data[text] = v
	c.times[text] = time.Now()
	c.mu.Unlock()
	return v, nil
}

// Stats reports cache hit/miss counters for the metrics endpoint.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
