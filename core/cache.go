package core

import (
	"sync"
	"time"
)

// Cached resources. Every mutation invalidates the resources it touches.
const (
	ResourceFees      = "fees"
	ResourceStudents  = "students"
	ResourceInvoices  = "invoices"
	ResourcePayments  = "payments"
	ResourceDashboard = "dashboard"
)

type cacheEntry struct {
	value     interface{}
	resources []string
	expiresAt time.Time
}

// CacheTicket holds the generations of the resources a value is about to be read from.
type CacheTicket struct {
	resources []string
	gens      []uint64
}

// Cache holds derived read models (aggregates, reports) keyed by name.
// Each entry declares the resources it was computed from; Invalidate drops every entry that
// depends on any of the given resources. Cached values are never edited in place.
//
// Readers take a ticket with Begin before reading the store and store the result with SetFresh,
// which drops it if one of the resources was invalidated in between.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	gens    map[string]uint64
	nowFunc func() time.Time
}

// NewCache returns a Cache whose entries expire after ttl (never if ttl <= 0).
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
		nowFunc: time.Now,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && c.nowFunc().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value unconditionally.
func (c *Cache) Set(key string, value interface{}, resources ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, resources)
}

func (c *Cache) set(key string, value interface{}, resources []string) {
	entry := cacheEntry{value: value, resources: resources}
	if c.ttl > 0 {
		entry.expiresAt = c.nowFunc().Add(c.ttl)
	}
	c.entries[key] = entry
}

// Begin must be called before reading the value later given to SetFresh.
func (c *Cache) Begin(resources ...string) CacheTicket {
	t := CacheTicket{resources: resources, gens: make([]uint64, len(resources))}
	if c == nil {
		return t
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, r := range resources {
		t.gens[i] = c.gens[r]
	}
	return t
}

// SetFresh stores value under the ticket's resources, unless any of them was invalidated
// since the ticket was taken.
func (c *Cache) SetFresh(key string, value interface{}, t CacheTicket) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range t.resources {
		if c.gens[r] != t.gens[i] {
			return false
		}
	}
	c.set(key, value, t.resources)
	return true
}

// Invalidate drops all entries depending on any of the resources.
func (c *Cache) Invalidate(resources ...string) {
	if c == nil || len(resources) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range resources {
		c.gens[r]++
	}
	for key, entry := range c.entries {
		if dependsOnAny(entry.resources, resources) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func dependsOnAny(deps, resources []string) bool {
	for _, d := range deps {
		for _, r := range resources {
			if d == r {
				return true
			}
		}
	}
	return false
}
