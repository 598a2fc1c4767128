package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/sieveworks/go-sieve/interp"
)

type cacheEntry struct {
	script *interp.Script
	hash   string
}

// scriptCache holds compiled scripts by name and evicts the least recently
// used one when full.
type scriptCache struct {
	mu          sync.Mutex
	entries     map[string]*cacheEntry
	maxEntries  int
	accessOrder []string
}

func newScriptCache(maxEntries int) *scriptCache {
	return &scriptCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
}

func hashScript(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}

func (c *scriptCache) get(name string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[name]
	if ok {
		c.touch(name)
	}
	return e, ok
}

func (c *scriptCache) put(name string, e *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[name] = e
	c.touch(name)
}

func (c *scriptCache) remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	c.removeFromAccessOrder(name)
	return true
}

func (c *scriptCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *scriptCache) touch(name string) {
	c.removeFromAccessOrder(name)
	c.accessOrder = append(c.accessOrder, name)
}

func (c *scriptCache) removeFromAccessOrder(name string) {
	for i, k := range c.accessOrder {
		if k == name {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			return
		}
	}
}

func (c *scriptCache) evictOldest() {
	if len(c.accessOrder) == 0 {
		return
	}
	oldest := c.accessOrder[0]
	delete(c.entries, oldest)
	c.accessOrder = c.accessOrder[1:]
}
