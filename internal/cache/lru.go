// Package cache provides the in-process caches for derived views. A plain
// LRU list with per-entry TTL covers this app's scale; a handful of owners
// fit comfortably in memory.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// LRUCache is a mutex-guarded LRU with a fixed capacity and one TTL for
// every entry.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	index    map[string]*list.Element
	order    *list.List
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache builds a cache holding at most capacity entries for ttl each.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value and refreshes its recency. Expired entries
// are dropped on access.
func (c *LRUCache[T]) Get(key string) (value T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.index[key]
	if !found {
		return value, false
	}
	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.evict(elem)
		return value, false
	}
	c.order.MoveToFront(elem)
	return e.data, true
}

// Set stores data under key, evicting the least recently used entry when
// the cache is full.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, data: data, expiresAt: time.Now().Add(c.ttl)}
	if elem, ok := c.index[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.index[key] = c.order.PushFront(e)
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.evict(oldest)
		}
	}
}

// Delete removes key if present.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[key]; ok {
		c.evict(elem)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns the count removed. Keys are structured "owner|kind|window", so a
// prefix wipes one owner's entries after a write.
func (c *LRUCache[T]) InvalidatePrefix(prefix string) int {
	return c.removeMatching(func(e *entry[T]) bool {
		return strings.HasPrefix(e.key, prefix)
	})
}

// CleanExpired drops entries past their TTL and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	now := time.Now()
	return c.removeMatching(func(e *entry[T]) bool {
		return now.After(e.expiresAt)
	})
}

func (c *LRUCache[T]) removeMatching(match func(*entry[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if match(elem.Value.(*entry[T])) {
			doomed = append(doomed, elem)
		}
	}
	for _, elem := range doomed {
		c.evict(elem)
	}
	return len(doomed)
}

func (c *LRUCache[T]) evict(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.index, e.key)
	c.order.Remove(elem)
}

// Size returns the current entry count.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}
