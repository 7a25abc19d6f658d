// Package cache holds parsed locale documents and answers validity queries
// against a configurable TTL.
//
// Two stores are provided: an in-memory store for single-process use and a
// Redis-backed store for deployments where several processes should share
// one set of fetched documents. Both resolve misses through a Resolver
// (usually the source package) and are safe for concurrent use.
package cache

import (
	"context"
	"time"

	"github.com/valentin-kaiser/go-locale/document"
)

// DefaultTTL is the validity window applied when none is configured
const DefaultTTL = 5 * time.Minute

// Resolver fetches and parses the document for a locale on a cache miss
type Resolver interface {
	Resolve(ctx context.Context, locale string) (document.Node, error)
}

// Store is the contract every document cache fulfils
type Store interface {
	// Get returns the cached document for a locale while it is still within
	// TTL, otherwise it resolves, stores and returns a fresh one
	Get(ctx context.Context, locale string) (document.Node, error)
	// Refresh bypasses the validity check and forces a fresh resolution
	Refresh(ctx context.Context, locale string) (document.Node, error)
	// Invalidate removes the entry for one locale
	Invalidate(locale string)
	// InvalidateAll removes every entry
	InvalidateAll()
	// IsCached reports whether an entry exists and is still within TTL
	IsCached(locale string) bool
	// Locales returns a snapshot of the currently held locale tags,
	// regardless of staleness
	Locales() []string
	// Stats returns a snapshot of the hit/miss counters
	Stats() Stats
}

// Stats captures cache effectiveness counters
type Stats struct {
	Hits      int64
	Misses    int64
	Refreshes int64
	Size      int64
}
