// file: internal/cache/cache.go
// version: 2.1.0
// guid: db4ab60d-d950-49c7-afd5-7c3d3dcc4683

package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a simple generic TTL cache safe for concurrent use.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a cache with the given default TTL.
func New[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		items:      make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get retrieves a value if it exists and hasn't expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.defaultTTL)}
	c.mu.Unlock()
}

// Invalidate removes a single key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// InvalidateAll removes all entries.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[string]entry[T])
	c.mu.Unlock()
}

// Snapshot caches the result of one loader for a TTL. Concurrent readers
// on a cold or expired snapshot share a single load. A load that overlaps
// an Invalidate is handed to its caller but never cached.
type Snapshot[T any] struct {
	cache *Cache[T]
	load  func() (T, error)

	loadMu sync.Mutex
	loads  uint64

	// genMu orders Invalidate against storing a finished load
	genMu sync.Mutex
	gen   uint64
}

const snapshotKey = "snapshot"

// NewSnapshot wraps load with a TTL cache
func NewSnapshot[T any](ttl time.Duration, load func() (T, error)) *Snapshot[T] {
	return &Snapshot[T]{cache: New[T](ttl), load: load}
}

// Get returns the cached value or loads a fresh one. Load errors are not
// cached.
func (s *Snapshot[T]) Get() (T, error) {
	if v, ok := s.cache.Get(snapshotKey); ok {
		return v, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if v, ok := s.cache.Get(snapshotKey); ok {
		return v, nil
	}

	s.genMu.Lock()
	started := s.gen
	s.genMu.Unlock()

	v, err := s.load()
	if err != nil {
		var zero T
		return zero, err
	}
	s.loads++

	s.genMu.Lock()
	if s.gen == started {
		s.cache.Set(snapshotKey, v)
	}
	s.genMu.Unlock()
	return v, nil
}

// Invalidate drops the cached value so the next Get reloads. A load
// already in flight is not cached.
func (s *Snapshot[T]) Invalidate() {
	s.genMu.Lock()
	s.gen++
	s.cache.Invalidate(snapshotKey)
	s.genMu.Unlock()
}

// Loads returns how many times the loader has run successfully
func (s *Snapshot[T]) Loads() uint64 {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loads
}
