// Package dedup provides an in-process cache of recently seen request keys.
//
// It only saves round trips to the database for same-process duplicates; callers
// must still rely on a durable check for correctness.
package dedup

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache records keys for a fixed window.
type Cache interface {
	// Seen reports whether key was marked within the window.
	Seen(key string) bool
	// Mark records key. It returns false if the key was already present.
	Mark(key string) bool
	// Forget drops key, e.g. after the guarded operation failed.
	Forget(key string)
}

type ttlCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, time.Time]
}

// New returns a Cache holding at most size keys, each evicted after ttl.
func New(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 1024
	}
	return &ttlCache{lru: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

func (c *ttlCache) Seen(key string) bool {
	return c.lru.Contains(key)
}

func (c *ttlCache) Mark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(key) {
		return false
	}
	c.lru.Add(key, time.Now())
	return true
}

func (c *ttlCache) Forget(key string) {
	c.lru.Remove(key)
}

// Nop never reports a duplicate.
type Nop struct{}

func (Nop) Seen(string) bool { return false }
func (Nop) Mark(string) bool { return true }
func (Nop) Forget(string)    {}
