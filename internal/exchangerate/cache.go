package exchangerate

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCacheTTL bounds how stale a live rate table may be.
const DefaultCacheTTL = time.Hour

// CacheEntry is an immutable snapshot of one base currency's rate table.
type CacheEntry struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
}

// Cache holds at most one entry per base currency. A refresh replaces the
// entry wholesale; concurrent refreshes race and the last write wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the entry for base when it is younger than the TTL.
func (c *Cache) Get(base string) (CacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[base]
	c.mu.RUnlock()
	if !ok || entry.Base != base {
		return CacheEntry{}, false
	}
	if c.now().Sub(entry.FetchedAt) >= c.ttl {
		return CacheEntry{}, false
	}
	return entry, true
}

// Set overwrites the entry for base with a copy of rates.
func (c *Cache) Set(base string, rates map[string]decimal.Decimal) CacheEntry {
	snapshot := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		snapshot[normalizeCode(code)] = rate
	}
	entry := CacheEntry{Base: base, Rates: snapshot, FetchedAt: c.now()}

	c.mu.Lock()
	c.entries[base] = entry
	c.mu.Unlock()
	return entry
}
