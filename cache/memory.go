package cache

import (
	"context"
	"sync"
	"time"

	"github.com/valentin-kaiser/go-locale/document"
	"github.com/valentin-kaiser/go-locale/logging"
	"golang.org/x/sync/singleflight"
)

var logger = logging.GetPackageLogger("cache")

// MemoryStore is an in-memory document cache with TTL-based expiry.
// Concurrent misses for the same locale are coalesced into a single fetch.
type MemoryStore struct {
	resolver Resolver
	ttl      time.Duration
	mutex    sync.RWMutex
	entries  map[string]*memoryEntry
	group    singleflight.Group
	stats    Stats
	now      func() time.Time
}

type memoryEntry struct {
	doc       document.Node
	fetchedAt time.Time
}

// NewMemoryStore creates an in-memory store that resolves misses through the
// given resolver. A TTL of zero means every Get refetches.
func NewMemoryStore(resolver Resolver, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		resolver: resolver,
		ttl:      ttl,
		entries:  make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// WithTTL sets the validity window for cached entries
func (s *MemoryStore) WithTTL(ttl time.Duration) *MemoryStore {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.ttl = ttl
	return s
}

// Get returns the cached document for a locale while it is still valid,
// otherwise it resolves a fresh one, stores it with the current timestamp and
// returns it. The fetch runs outside the entry-map critical section.
func (s *MemoryStore) Get(ctx context.Context, locale string) (document.Node, error) {
	s.mutex.RLock()
	entry, ok := s.entries[locale]
	valid := ok && s.valid(entry)
	s.mutex.RUnlock()

	if valid {
		s.count(func(st *Stats) { st.Hits++ })
		return entry.doc, nil
	}

	s.count(func(st *Stats) { st.Misses++ })

	// Coalesce concurrent misses for the same locale into one fetch. The
	// result is shared by every waiting caller.
	doc, err, _ := s.group.Do(locale, func() (interface{}, error) {
		return s.fetch(ctx, locale)
	})
	if err != nil {
		return nil, err
	}
	return doc.(document.Node), nil
}

// Refresh resolves a fresh document for the locale regardless of the cached
// entry's validity
func (s *MemoryStore) Refresh(ctx context.Context, locale string) (document.Node, error) {
	s.count(func(st *Stats) { st.Refreshes++ })
	return s.fetch(ctx, locale)
}

// Invalidate removes the entry for one locale; safe to call concurrently
// with Get
func (s *MemoryStore) Invalidate(locale string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.entries, locale)
}

// InvalidateAll removes every entry
func (s *MemoryStore) InvalidateAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = make(map[string]*memoryEntry)
}

// IsCached reports whether an entry exists and is still within TTL
func (s *MemoryStore) IsCached(locale string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	entry, ok := s.entries[locale]
	return ok && s.valid(entry)
}

// Locales returns a snapshot of the currently held locale tags
func (s *MemoryStore) Locales() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	locales := make([]string, 0, len(s.entries))
	for locale := range s.entries {
		locales = append(locales, locale)
	}
	return locales
}

// Stats returns a snapshot of the hit/miss counters
func (s *MemoryStore) Stats() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	stats := s.stats
	stats.Size = int64(len(s.entries))
	return stats
}

// fetch resolves the locale and stores the result with the current timestamp
func (s *MemoryStore) fetch(ctx context.Context, locale string) (document.Node, error) {
	doc, err := s.resolver.Resolve(ctx, locale)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.entries[locale] = &memoryEntry{doc: doc, fetchedAt: s.now()}
	s.mutex.Unlock()

	logger.Debug().Str("locale", locale).Msg("locale document cached")
	return doc, nil
}

// valid must be called with at least a read lock held
func (s *MemoryStore) valid(entry *memoryEntry) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(entry.fetchedAt) < s.ttl
}

// count applies a mutation to the stats under the write lock
func (s *MemoryStore) count(mutate func(*Stats)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	mutate(&s.stats)
}
