// Package cache provides a small bounded key/value store with
// insertion-order eviction and a caller-supplied time-to-live on reads.
// It is used to memoize expensive network fetches such as scraped pages.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const DefaultMaxSize = 100

type entry struct {
	key       string
	data      interface{}
	timestamp time.Time
}

type Cache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = oldest
	now     func() time.Time
}

func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Set stores a value under key. When the cache is full the oldest entry
// (by insertion order, not by access) is evicted first. Overwriting an
// existing key refreshes its timestamp but keeps its insertion slot.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.data = value
		e.timestamp = c.now()
		return
	}

	if len(c.items) >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.removeLocked(oldest)
		}
	}

	el := c.order.PushBack(&entry{key: key, data: value, timestamp: c.now()})
	c.items[key] = el
}

// Get returns the value stored under key if it is younger than ttl.
// Expired entries are removed on read.
func (c *Cache) Get(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry)
	if c.now().Sub(e.timestamp) > ttl {
		c.removeLocked(el)
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.items, e.key)
}
