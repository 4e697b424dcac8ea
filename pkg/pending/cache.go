// Package pending keeps resolved requests that wait for an image upload.
package pending

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

// Policy is the expiry policy of the cache. Entries live for TTL from the
// moment they are put; expired entries are swept every CleanupInterval and
// read as absent in between.
type Policy struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

var DefaultPolicy = Policy{
	TTL:             time.Hour,
	CleanupInterval: 10 * time.Minute,
}

type Cache struct {
	mu    sync.Mutex
	items *cache.Cache
}

func New(policy Policy) *Cache {
	return &Cache{
		items: cache.New(policy.TTL, policy.CleanupInterval),
	}
}

// Put stores params under key, replacing any previous entry and restarting
// its expiry.
func (c *Cache) Put(key string, params domain.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Set(key, params.Clone(), cache.DefaultExpiration)
}

// Take returns the entry under key and removes it.
func (c *Cache) Take(key string) (domain.Params, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items.Get(key)
	if !ok {
		return domain.Params{}, false
	}
	c.items.Delete(key)

	return v.(domain.Params), true
}

// Len counts stored entries, including expired ones not swept yet.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
