// Package cache memoizes answers per (question, school) for a fixed TTL.
//
// Entries live in one map keyed by a hash of the exact question bytes and the tenant id.
// A lookup of an expired entry is a miss but leaves the entry in place; expired entries are
// swept only when a Put finds the map over capacity.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxEntries = 1000
)

type entry[V any] struct {
	value     V
	tenantID  uuid.UUID
	createdAt time.Time
}

// Cache is safe for concurrent use
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache
type Option func(*options)

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// WithTTL sets how long an entry is served
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxEntries sets the size above which a Put sweeps expired entries
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an empty cache
func New[V any](opts ...Option) *Cache[V] {
	o := options{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		ttl:        o.ttl,
		maxEntries: o.maxEntries,
		now:        o.now,
	}
}

// Key derives the cache key. Questions are compared byte for byte.
func Key(question string, tenantID uuid.UUID) string {
	h := sha256.New()
	h.Write([]byte(question))
	h.Write([]byte{0})
	h.Write([]byte(tenantID.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the value stored for (question, tenantID) if it is younger than the TTL
func (c *Cache[V]) Get(question string, tenantID uuid.UUID) (V, bool) {
	key := Key(question, tenantID)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value for (question, tenantID)
func (c *Cache[V]) Put(question string, tenantID uuid.UUID, value V) {
	key := Key(question, tenantID)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) > c.maxEntries {
		c.sweepLocked(now)
	}
	c.entries[key] = entry[V]{value: value, tenantID: tenantID, createdAt: now}
}

// Purge drops every entry and returns how many there were
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry[V])
	return n
}

// PurgeTenant drops the entries of one tenant and returns how many there were
func (c *Cache[V]) PurgeTenant(tenantID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if e.tenantID == tenantID {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) sweepLocked(now time.Time) {
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}
