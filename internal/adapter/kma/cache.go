package kma

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// Fetcher is the upstream a CachedFetcher decorates.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RawFeed, error)
}

// CachedFetcher wraps a fetcher with an in-memory LRU cache keyed by
// station and observation hour. Soundings are launched on a fixed
// schedule, so within the same hour the upstream would return the same
// text; refetching it only burns API quota.
type CachedFetcher struct {
	inner   Fetcher
	station string
	clock   clockwork.Clock
	cache   *lruCache
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, station string, maxEntries int, clock clockwork.Clock) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		station: station,
		clock:   clock,
		cache:   newLRUCache(maxEntries),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context) (domain.RawFeed, error) {
	key := fmt.Sprintf("%s|%s", c.station, c.clock.Now().UTC().Format("2006010215"))
	if feed, ok := c.cache.get(key); ok {
		return feed, nil
	}
	feed, err := c.inner.Fetch(ctx)
	if err != nil {
		return feed, err
	}
	// Only cache non-empty bodies so a transient blank response can be retried.
	if len(feed.Text) > 0 {
		c.cache.put(key, feed)
	}
	return feed, nil
}

// lruCache is a simple thread-safe LRU cache for raw feeds.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.RawFeed
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.RawFeed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.RawFeed{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.RawFeed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
