package intent

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long a template stays valid after it is stored.
const DefaultTTL = time.Hour

// Clock abstracts time for the cache.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Entry is one cached template with the time it was stored.
type Entry struct {
	Key      string
	Template Template
	StoredAt time.Time
}

// Cache maps template keys to templates with lazy TTL expiry: an entry is
// only removed when a lookup finds it stale. The cache owns its templates;
// they are copied on the way in and on the way out.
type Cache struct {
	ttl     time.Duration
	clock   Clock
	entries map[string]Entry
	mu      sync.Mutex
}

// NewCache creates a cache. A non-positive ttl falls back to DefaultTTL and a
// nil clock to SystemClock.
func NewCache(ttl time.Duration, clock Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]Entry),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup returns the template for key if it was stored less than TTL ago.
// An expired entry is deleted.
func (c *Cache) Lookup(key string) (Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.StoredAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.Template.Clone(), true
}

// Store overwrites any existing entry for key.
func (c *Cache) Store(key string, tpl Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Template: tpl.Clone(), StoredAt: c.clock.Now()}
}

// Load pre-warms the cache. Every entry is stamped with the current time.
func (c *Cache) Load(templates map[string]Template) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tpl := range templates {
		c.entries[key] = Entry{Key: key, Template: tpl.Clone(), StoredAt: now}
	}
}

// Restore pre-warms the cache with entries that keep their StoredAt, so a
// restored template expires when it would have without the restart. A zero
// or future time is replaced with now.
func (c *Cache) Restore(entries []Entry) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		at := e.StoredAt
		if at.IsZero() || at.After(now) {
			at = now
		}
		c.entries[e.Key] = Entry{Key: e.Key, Template: e.Template.Clone(), StoredAt: at}
	}
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len counts entries, including stale ones not yet looked up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns the live (unexpired) entries sorted by key. Stale entries
// are left in place; expiry only happens on lookup.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	now := c.clock.Now()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Sub(e.StoredAt) >= c.ttl {
			continue
		}
		out = append(out, Entry{Key: e.Key, Template: e.Template.Clone(), StoredAt: e.StoredAt})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
