package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheEntry represents a cached expansion result
type CacheEntry struct {
	Dates      []time.Time
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// CacheKey identifies one expansion request
type CacheKey struct {
	Operation  string
	Anchor     time.Time
	Rule       Rule
	Exceptions ExceptionSet
	MaxCount   int
	Horizon    int
	From, To   time.Time
}

// RecurrenceCache memoizes expansion results for a limited time
type RecurrenceCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	hits, misses    int
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRecurrenceCache creates a new recurrence cache and starts its cleanup loop
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	cache := &RecurrenceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// hashKey builds a stable digest of the key. Exceptions are hashed in
// ascending order so equal sets share an entry.
func (k CacheKey) hashKey() string {
	spec := SpecOf(k.Rule)

	hasher := sha256.New()
	write := func(s string) {
		hasher.Write([]byte(s))
		hasher.Write([]byte{0})
	}

	write(k.Operation)
	write(FormatDate(k.Anchor))
	write(spec.Freq)
	write(strconv.Itoa(spec.IntervalCount))
	write(strings.Join(spec.ByDay, ","))
	for _, d := range spec.ByMonthDay {
		write(strconv.Itoa(d))
	}
	write(spec.Until)
	for _, d := range k.Exceptions.Dates() {
		write(FormatDate(d))
	}
	write(strconv.Itoa(k.MaxCount))
	write(strconv.Itoa(k.Horizon))
	if !k.From.IsZero() {
		write(FormatDate(k.From))
	}
	if !k.To.IsZero() {
		write(FormatDate(k.To))
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired. The
// returned slice is a copy.
func (c *RecurrenceCache) Get(key CacheKey) ([]time.Time, bool) {
	k := key.hashKey()
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[k]
	if !exists {
		c.misses++
		return nil, false
	}
	if now.After(entry.ExpiresAt) {
		delete(c.entries, k)
		c.misses++
		return nil, false
	}

	entry.AccessedAt = now
	c.hits++
	return append([]time.Time{}, entry.Dates...), true
}

// Set stores a copy of dates in the cache
func (c *RecurrenceCache) Set(key CacheKey, dates []time.Time) {
	k := key.hashKey()
	now := time.Now()

	entry := &CacheEntry{
		Dates:      append([]time.Time{}, dates...),
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[k] = entry

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// while over the limit. Callers must hold the write lock.
func (c *RecurrenceCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keyAccessList, func(i, j int) bool {
		return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

// cleanupLoop runs periodic cleanup
func (c *RecurrenceCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. Safe to call
// more than once.
func (c *RecurrenceCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	expiredCount := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expiredCount,
		ActiveEntries:  len(c.entries) - expiredCount,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int
	Misses         int
}
