package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry represents a cached payload with expiration
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryStore is an in-memory LRU store with per-entry TTL.
// Expiry is enforced on read; an optional sweep reclaims expired entries
// nobody reads again.
type MemoryStore struct {
	cache *lru.Cache[string, *cacheEntry]
	now   func() time.Time
	mu    sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a new in-memory store holding at most size
// entries. A zero sweepInterval disables the background sweep.
func NewMemoryStore(size int, sweepInterval time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return nil, err
	}

	ms := &MemoryStore{
		cache: cache,
		now:   time.Now,
		done:  make(chan struct{}),
	}

	if sweepInterval > 0 {
		go ms.cleanupLoop(sweepInterval)
	}

	return ms, nil
}

// Get retrieves a payload from the store
func (ms *MemoryStore) Get(key string) ([]byte, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.cache.Get(key)
	if !ok {
		return nil, false
	}

	if entry.expired(ms.now()) {
		ms.cache.Remove(key)
		return nil, false
	}

	return entry.data, true
}

// Set stores a payload, overwriting any previous entry
func (ms *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.cache.Add(key, &cacheEntry{
		data:      value,
		expiresAt: ms.now().Add(ttl),
	})
}

// Add stores a payload unless a live entry already exists
func (ms *MemoryStore) Add(key string, value []byte, ttl time.Duration) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	if entry, ok := ms.cache.Peek(key); ok && !entry.expired(now) {
		return false
	}

	ms.cache.Add(key, &cacheEntry{
		data:      value,
		expiresAt: now.Add(ttl),
	})
	return true
}

// Len returns the number of held entries
func (ms *MemoryStore) Len() int {
	return ms.cache.Len()
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() {
		close(ms.done)
	})
}

// cleanupLoop periodically removes expired entries
func (ms *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.done:
			return
		case <-ticker.C:
			ms.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the store. The store lock
// is taken per key so Get and Add are not held up for the whole walk.
func (ms *MemoryStore) removeExpired() int {
	now := ms.now()
	removed := 0

	for _, key := range ms.cache.Keys() {
		if ms.removeIfExpired(key, now) {
			removed++
		}
	}

	return removed
}

// removeIfExpired drops key if its entry is still expired at now. An entry
// re-added after the key snapshot was taken is left alone.
func (ms *MemoryStore) removeIfExpired(key string, now time.Time) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.cache.Peek(key)
	if !ok || !entry.expired(now) {
		return false
	}
	ms.cache.Remove(key)
	return true
}

// NoopStore is a store that does nothing (used when caching is disabled)
type NoopStore struct{}

// NewNoopStore creates a new no-op store
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

// Get always returns not found
func (ns *NoopStore) Get(key string) ([]byte, bool) {
	return nil, false
}

// Set does nothing
func (ns *NoopStore) Set(key string, value []byte, ttl time.Duration) {}

// Add never stores
func (ns *NoopStore) Add(key string, value []byte, ttl time.Duration) bool {
	return false
}

// Len is always zero
func (ns *NoopStore) Len() int {
	return 0
}

// Close does nothing
func (ns *NoopStore) Close() {}
