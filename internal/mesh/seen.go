package mesh

import (
	"container/list"
	"sync"
	"time"

	"github.com/matheus3301/meshchat/internal/wire"
)

// SeenCache remembers recently handled message keys so a message reaching a
// node over several paths is shown and forwarded once. It is bounded both by
// age and by entry count; the oldest entry goes first.
type SeenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	order   *list.List
	entries map[wire.Key]*list.Element
	now     func() time.Time
}

type seenEntry struct {
	key     wire.Key
	expires time.Time
}

// NewSeenCache creates a cache. ttl <= 0 disables expiry, max <= 0 disables
// the size bound.
func NewSeenCache(ttl time.Duration, max int) *SeenCache {
	return &SeenCache{
		ttl:     ttl,
		max:     max,
		order:   list.New(),
		entries: make(map[wire.Key]*list.Element),
		now:     time.Now,
	}
}

// Add records key and reports whether it was new.
func (c *SeenCache) Add(key wire.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	if _, ok := c.entries[key]; ok {
		return false
	}

	e := &seenEntry{key: key}
	if c.ttl > 0 {
		e.expires = now.Add(c.ttl)
	}
	c.entries[key] = c.order.PushBack(e)
	for c.max > 0 && c.order.Len() > c.max {
		c.removeLocked(c.order.Front())
	}
	return true
}

// Has reports whether key is currently remembered.
func (c *SeenCache) Has(key wire.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(c.now())
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of remembered keys.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// expireLocked drops entries from the front while they are expired. Entries
// are inserted in time order, so the front is always the oldest.
func (c *SeenCache) expireLocked(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if now.Before(front.Value.(*seenEntry).expires) {
			return
		}
		c.removeLocked(front)
	}
}

func (c *SeenCache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*seenEntry).key)
}
