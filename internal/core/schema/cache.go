package schema

import (
	"container/list"
	"sync"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// Stats represents cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Stale     int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

type cacheEntry struct {
	relation    string
	fingerprint string
	schema      *domain.Schema
}

// Cache is a bounded LRU of inspected schemas keyed by relation name.
// An entry is only served while its fingerprint matches the relation's.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element
	stats   Stats
}

// NewCache creates a cache holding at most maxSize schemas.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &Cache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		stats:   Stats{MaxSize: maxSize},
	}
}

// Get returns the cached schema when it was inspected at the same fingerprint.
func (c *Cache) Get(relation, fingerprint string) (*domain.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[relation]
	if !ok {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if entry.fingerprint != fingerprint {
		c.removeElement(el)
		c.stats.Stale++
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	c.updateHitRate()
	return entry.schema, true
}

// Set stores a schema, evicting the least recently used entry when full.
func (c *Cache) Set(relation, fingerprint string, s *domain.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[relation]; ok {
		entry := el.Value.(*cacheEntry)
		entry.fingerprint = fingerprint
		entry.schema = s
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			c.stats.Evictions++
		}
	}

	c.entries[relation] = c.order.PushFront(&cacheEntry{relation: relation, fingerprint: fingerprint, schema: s})
	c.stats.Size = len(c.entries)
}

// Invalidate removes one relation from the cache.
func (c *Cache) Invalidate(relation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[relation]; ok {
		c.removeElement(el)
	}
}

// Clear removes all entries and resets the statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.stats = Stats{MaxSize: c.maxSize}
}

// GetStats returns a snapshot of the cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).relation)
	c.stats.Size = len(c.entries)
}

func (c *Cache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}
