// Package namecache resolves event ids to display names with a bounded
// cache in front of the ledger.
package namecache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the cache size used when none is given.
const DefaultCapacity = 256

// Cache is a bounded LRU of event id to name. It is safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, string]
}

// NewCache creates a Cache holding up to capacity names.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, string](capacity)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the cached name for id.
func (c *Cache) Get(id string) (string, bool) {
	return c.lru.Get(id)
}

// Put records a name. Empty names are not cached.
func (c *Cache) Put(id, name string) {
	if name == "" {
		return
	}
	c.lru.Add(id, name)
}

// Invalidate drops one entry.
func (c *Cache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	return c.lru.Len()
}
