package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valentin-kaiser/go-locale/document"
	"github.com/valentin-kaiser/go-locale/source"
)

// fakeResolver serves fixed documents and counts how often each locale was
// resolved
type fakeResolver struct {
	mutex sync.Mutex
	docs  map[string]document.Node
	calls map[string]int
	err   error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		docs:  make(map[string]document.Node),
		calls: make(map[string]int),
	}
}

func (r *fakeResolver) add(locale string, doc document.Node) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.docs[locale] = doc
}

func (r *fakeResolver) count(locale string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.calls[locale]
}

func (r *fakeResolver) Resolve(_ context.Context, locale string) (document.Node, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.calls[locale]++
	if r.err != nil {
		return nil, r.err
	}
	doc, ok := r.docs[locale]
	if !ok {
		return nil, &source.NotFoundError{Locale: locale}
	}
	return doc, nil
}

func TestMemoryStoreGet(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	store := NewMemoryStore(resolver, time.Minute)
	ctx := context.Background()

	doc, err := store.Get(ctx, "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := doc.Lookup("greeting"); got != "Hello" {
		t.Errorf("greeting = %q, want %q", got, "Hello")
	}

	// The second access must be served from the cache
	_, err = store.Get(ctx, "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.count("en-US") != 1 {
		t.Errorf("expected 1 resolution, got %d", resolver.count("en-US"))
	}

	stats := store.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore(newFakeResolver(), time.Minute)

	_, err := store.Get(context.Background(), "fr-FR")
	var notFound *source.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if store.IsCached("fr-FR") {
		t.Error("a failed resolution must not be cached")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	store := NewMemoryStore(resolver, time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}

	// Within the window the entry is valid
	now = now.Add(59 * time.Second)
	if !store.IsCached("en-US") {
		t.Error("entry should still be valid before the TTL elapses")
	}
	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}
	if resolver.count("en-US") != 1 {
		t.Errorf("expected 1 resolution, got %d", resolver.count("en-US"))
	}

	// At the boundary the entry has expired and the next access refetches
	now = now.Add(time.Second)
	if store.IsCached("en-US") {
		t.Error("entry should be expired once the TTL has elapsed")
	}
	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}
	if resolver.count("en-US") != 2 {
		t.Errorf("expected 2 resolutions, got %d", resolver.count("en-US"))
	}
}

func TestMemoryStoreZeroTTL(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	store := NewMemoryStore(resolver, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, "en-US"); err != nil {
			t.Fatal(err)
		}
	}
	if resolver.count("en-US") != 3 {
		t.Errorf("a zero TTL must refetch on every access, got %d resolutions", resolver.count("en-US"))
	}
	if store.IsCached("en-US") {
		t.Error("nothing counts as cached with a zero TTL")
	}
}

func TestMemoryStoreRefresh(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	store := NewMemoryStore(resolver, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}

	resolver.add("en-US", document.Node{"greeting": document.Leaf("Updated")})
	doc, err := store.Refresh(ctx, "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := doc.Lookup("greeting"); got != "Updated" {
		t.Errorf("greeting = %q, want the refreshed value", got)
	}

	// The refreshed document replaced the cached one
	doc, err = store.Get(ctx, "en-US")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := doc.Lookup("greeting"); got != "Updated" {
		t.Errorf("greeting = %q after refresh, want %q", got, "Updated")
	}
	if store.Stats().Refreshes != 1 {
		t.Errorf("unexpected refresh counter: %+v", store.Stats())
	}
}

func TestMemoryStoreInvalidate(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})
	resolver.add("de-DE", document.Node{"greeting": document.Leaf("Hallo")})

	store := NewMemoryStore(resolver, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "de-DE"); err != nil {
		t.Fatal(err)
	}

	store.Invalidate("en-US")
	if store.IsCached("en-US") {
		t.Error("en-US should be gone after Invalidate")
	}
	if !store.IsCached("de-DE") {
		t.Error("de-DE should be untouched")
	}

	store.InvalidateAll()
	if store.IsCached("de-DE") {
		t.Error("nothing should survive InvalidateAll")
	}
	if len(store.Locales()) != 0 {
		t.Errorf("unexpected locales after InvalidateAll: %v", store.Locales())
	}
}

func TestMemoryStoreLocales(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{})
	resolver.add("de-DE", document.Node{})

	store := NewMemoryStore(resolver, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "en-US"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "de-DE"); err != nil {
		t.Fatal(err)
	}

	locales := store.Locales()
	sort.Strings(locales)
	if len(locales) != 2 || locales[0] != "de-DE" || locales[1] != "en-US" {
		t.Errorf("unexpected locales: %v", locales)
	}
}

// Concurrent misses for the same locale must be coalesced into a single
// resolution.
func TestMemoryStoreCoalescing(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	// A gate in front of the resolver keeps every goroutine in the miss path
	// until all of them have started
	gate := make(chan struct{})
	gated := &gatedResolver{inner: resolver, gate: gate}

	store := NewMemoryStore(gated, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Get(ctx, "en-US")
			if err != nil {
				failures.Add(1)
			}
		}()
	}

	// Give every goroutine time to reach the miss path before the gate opens
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d gets failed", failures.Load())
	}
	if count := resolver.count("en-US"); count > 2 {
		t.Errorf("expected coalesced fetches, got %d resolutions", count)
	}
}

type gatedResolver struct {
	inner Resolver
	gate  chan struct{}
}

func (r *gatedResolver) Resolve(ctx context.Context, locale string) (document.Node, error) {
	<-r.gate
	return r.inner.Resolve(ctx, locale)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	resolver := newFakeResolver()
	resolver.add("en-US", document.Node{"greeting": document.Leaf("Hello")})

	store := NewMemoryStore(resolver, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = store.Get(ctx, "en-US")
				store.IsCached("en-US")
				_ = store.Locales()
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Invalidate("en-US")
			}
		}()
	}
	wg.Wait()
}
