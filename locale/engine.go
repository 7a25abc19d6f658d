// Package locale implements the localization engine: it owns the current
// locale of a running application, resolves translation keys against cached
// locale documents and walks a fallback chain when a lookup fails.
//
// Locale documents live below a base path or URL in JSON, YAML or XML (see
// the source and codec packages) and are cached with a TTL (see the cache
// package). The engine is configured with chainable setters and started
// explicitly:
//
//	engine := locale.NewEngine().
//		WithBasePath("./data").
//		WithDefaultLocale("en-US").
//		WithCacheTTL(5 * time.Minute)
//
//	err := engine.Start(context.Background())
//	if err != nil {
//		// no locale could be loaded at all
//	}
//	defer engine.Stop()
//
//	greeting, err := engine.GetText(context.Background(), "greeting")
//
// All methods are safe for concurrent use. Registered change callbacks are
// invoked synchronously on every successful locale switch; a panicking
// callback is recovered and logged, never propagated to the caller of
// SetLocale.
package locale

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valentin-kaiser/go-locale/apperror"
	"github.com/valentin-kaiser/go-locale/cache"
	"github.com/valentin-kaiser/go-locale/detector"
	"github.com/valentin-kaiser/go-locale/document"
	"github.com/valentin-kaiser/go-locale/logging"
	"github.com/valentin-kaiser/go-locale/source"
)

var logger = logging.GetPackageLogger("locale")

// stopGracePeriod bounds how long Stop waits for the background checker
const stopGracePeriod = time.Second

// ChangeCallback is invoked after a successful locale switch. The old tag is
// empty when the engine had no locale yet.
type ChangeCallback func(old string, next string)

// Engine resolves translation keys for a current locale with fallback,
// caching and change notification
type Engine struct {
	basePath      string
	defaultLocale string
	autoDetect    bool
	cacheTTL      time.Duration
	checkInterval time.Duration
	fetchTimeout  time.Duration

	resolver *source.Resolver
	store    cache.Store
	detect   func() string

	mutex     sync.RWMutex
	current   string
	fallbacks []string
	started   bool

	cbMutex   sync.Mutex
	callbacks map[uint64]ChangeCallback
	nextID    uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates an engine with default settings: base path ".", default
// locale "en-US", auto-detection enabled and a five minute cache TTL and
// check interval. Start must be called before use.
func NewEngine() *Engine {
	return &Engine{
		basePath:      ".",
		defaultLocale: detector.DefaultLocale,
		autoDetect:    true,
		cacheTTL:      cache.DefaultTTL,
		checkInterval: 5 * time.Minute,
		fetchTimeout:  source.DefaultTimeout,
		detect:        detector.DetectSystemLocale,
		callbacks:     make(map[uint64]ChangeCallback),
	}
}

// WithBasePath sets the base directory or URL the locale files live below
func (e *Engine) WithBasePath(basePath string) *Engine {
	e.basePath = basePath
	return e
}

// WithDefaultLocale sets the locale used when detection is disabled or
// fails, and appended as the final fallback of every chain
func (e *Engine) WithDefaultLocale(tag string) *Engine {
	e.defaultLocale = detector.Normalize(tag)
	return e
}

// WithAutoDetect enables or disables system locale detection on Start
func (e *Engine) WithAutoDetect(enabled bool) *Engine {
	e.autoDetect = enabled
	return e
}

// WithCacheTTL sets the validity window of cached locale documents.
// A TTL of zero means every access refetches.
func (e *Engine) WithCacheTTL(ttl time.Duration) *Engine {
	e.cacheTTL = ttl
	return e
}

// WithCheckInterval sets the interval of the background staleness checker.
// An interval of zero disables the checker.
func (e *Engine) WithCheckInterval(interval time.Duration) *Engine {
	e.checkInterval = interval
	return e
}

// WithFetchTimeout bounds a single remote fetch
func (e *Engine) WithFetchTimeout(timeout time.Duration) *Engine {
	e.fetchTimeout = timeout
	return e
}

// WithResolver replaces the source resolver built from the base path
func (e *Engine) WithResolver(resolver *source.Resolver) *Engine {
	e.resolver = resolver
	return e
}

// WithStore replaces the in-memory document store, e.g. with a Redis-backed
// one shared between processes
func (e *Engine) WithStore(store cache.Store) *Engine {
	e.store = store
	return e
}

// WithDetector replaces the system locale detection function
func (e *Engine) WithDetector(detect func() string) *Engine {
	e.detect = detect
	return e
}

// Start loads the initial locale and launches the background staleness
// checker. The initial locale is the detected system locale when
// auto-detection is enabled, otherwise the default locale; either way the
// fallback chain is tried before Start gives up with a
// *source.NotFoundError.
func (e *Engine) Start(ctx context.Context) error {
	e.mutex.Lock()
	if e.started {
		e.mutex.Unlock()
		return apperror.NewError("engine already started")
	}

	if e.resolver == nil {
		e.resolver = source.NewResolver(e.basePath).WithTimeout(e.fetchTimeout)
	}
	if e.store == nil {
		e.store = cache.NewMemoryStore(e.resolver, e.cacheTTL)
	}
	e.mutex.Unlock()

	initial := e.defaultLocale
	if e.autoDetect {
		initial = e.detect()
	}

	err := e.SetLocale(ctx, initial)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	e.started = true
	e.stop = make(chan struct{})
	if e.checkInterval > 0 {
		e.done = make(chan struct{})
		go e.checker()
	}
	e.mutex.Unlock()

	logger.Info().Str("locale", e.GetCurrentLocale()).Str("base", e.basePath).Msg("engine started")
	return nil
}

// Stop cancels the background checker, waits for it with a bounded grace
// period and clears the cache. It is idempotent and safe to call even if the
// checker already exited.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mutex.RLock()
		stop, done, store := e.stop, e.done, e.store
		e.mutex.RUnlock()

		if stop != nil {
			close(stop)
		}
		if done != nil {
			select {
			case <-done:
			case <-time.After(stopGracePeriod):
				logger.Warn().Msg("background checker did not stop in time")
			}
		}
		if store != nil {
			store.InvalidateAll()
		}
	})
}

// SetLocale switches the current locale to the given tag. The tag is
// normalized first; when it cannot be loaded the fallback chain is tried in
// order and the first loadable candidate wins. Exactly one change
// notification fires, for the tag that actually committed, and only when it
// differs from the previous locale. When nothing is loadable, a
// *source.NotFoundError for the requested tag is returned and the engine
// state is left untouched.
func (e *Engine) SetLocale(ctx context.Context, tag string) error {
	tag = detector.Normalize(tag)

	err := e.commit(ctx, tag)
	if err == nil {
		return nil
	}

	var notFound *source.NotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	for _, fallback := range e.chain(tag) {
		err = e.commit(ctx, fallback)
		if err == nil {
			logger.Debug().Str("requested", tag).Str("selected", fallback).Msg("locale fell back")
			return nil
		}
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return &source.NotFoundError{Locale: tag}
}

// GetCurrentLocale returns the currently active locale, or the default
// locale when none has been set yet
func (e *Engine) GetCurrentLocale() string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	if e.current == "" {
		return e.defaultLocale
	}
	return e.current
}

// GetFallbackLocales returns the fallback chain computed for a tag: the
// language-only tag, the common regional variants, English and finally the
// engine's default locale, deduplicated and excluding the tag itself.
func (e *Engine) GetFallbackLocales(tag string) []string {
	return e.chain(detector.Normalize(tag))
}

// GetText resolves a dot-separated translation key against the current
// locale, then against each fallback in order. When every lookup misses it
// returns a *KeyNotFoundError.
func (e *Engine) GetText(ctx context.Context, key string) (string, error) {
	current, fallbacks := e.snapshot()

	value, ok, err := e.lookup(ctx, current, key)
	if err != nil {
		return "", err
	}
	if ok {
		return value, nil
	}

	for _, fallback := range fallbacks {
		value, ok, err = e.lookup(ctx, fallback, key)
		if err != nil {
			return "", err
		}
		if ok {
			return value, nil
		}
	}

	return "", &KeyNotFoundError{Key: key, Locale: current}
}

// GetTextDefault resolves a key like GetText but returns the given default
// instead of failing. Load faults are logged and also yield the default.
func (e *Engine) GetTextDefault(ctx context.Context, key string, def string) string {
	value, err := e.GetText(ctx, key)
	if err == nil {
		return value
	}

	var keyErr *KeyNotFoundError
	if !errors.As(err, &keyErr) {
		logger.Warn().Err(err).Str("key", key).Msg("translation lookup failed")
	}
	return def
}

// GetTextLocale resolves a key against one explicit locale. Explicit
// overrides never fall back: a miss yields a *KeyNotFoundError even when a
// fallback locale carries the key.
func (e *Engine) GetTextLocale(ctx context.Context, tag string, key string) (string, error) {
	tag = detector.Normalize(tag)

	value, ok, err := e.lookup(ctx, tag, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &KeyNotFoundError{Key: key, Locale: tag}
	}
	return value, nil
}

// HasKey reports whether GetText would succeed for the key
func (e *Engine) HasKey(ctx context.Context, key string) bool {
	_, err := e.GetText(ctx, key)
	return err == nil
}

// HasKeyLocale reports whether GetTextLocale would succeed for the key
func (e *Engine) HasKeyLocale(ctx context.Context, tag string, key string) bool {
	_, err := e.GetTextLocale(ctx, tag, key)
	return err == nil
}

// GetMetadata returns the metadata node of the current locale's document,
// or nil when the document carries none or the locale cannot be found
func (e *Engine) GetMetadata(ctx context.Context) (document.Node, error) {
	return e.GetMetadataLocale(ctx, e.GetCurrentLocale())
}

// GetMetadataLocale returns the metadata node of an explicit locale's
// document
func (e *Engine) GetMetadataLocale(ctx context.Context, tag string) (document.Node, error) {
	doc, err := e.store.Get(ctx, detector.Normalize(tag))
	if err != nil {
		var notFound *source.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Meta(), nil
}

// GetAvailableLocales probes a fixed set of common tags, plus the current
// and default locales, and returns those that resolve to a locale file
func (e *Engine) GetAvailableLocales(ctx context.Context) []string {
	probes := append(
		[]string{e.GetCurrentLocale(), e.defaultLocale},
		"en-US", "en-GB", "es-ES", "fr-FR", "de-DE",
	)

	var available []string
	seen := map[string]struct{}{}
	for _, tag := range probes {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		if e.resolver != nil && e.resolver.Exists(ctx, tag) {
			available = append(available, tag)
		}
	}
	return available
}

// GetCachedLocales returns the locale tags currently held by the store
func (e *Engine) GetCachedLocales() []string {
	return e.store.Locales()
}

// GetCacheStats returns the store's hit/miss counters
func (e *Engine) GetCacheStats() cache.Stats {
	return e.store.Stats()
}

// ReloadLocale force-refreshes the document for a locale, bypassing the TTL.
// An empty tag reloads the current locale. Engine state is not changed; the
// next lookup simply sees the fresh data.
func (e *Engine) ReloadLocale(ctx context.Context, tag string) error {
	if tag == "" {
		tag = e.GetCurrentLocale()
	}
	_, err := e.store.Refresh(ctx, detector.Normalize(tag))
	return err
}

// ClearCache evicts the cache entry for a locale, or every entry when the
// tag is empty. Engine state is not changed; the next lookup refetches.
func (e *Engine) ClearCache(tag string) {
	if tag == "" {
		e.store.InvalidateAll()
		return
	}
	e.store.Invalidate(detector.Normalize(tag))
}

// OnChange registers a callback invoked synchronously after every
// successful locale switch. The returned function removes the callback.
func (e *Engine) OnChange(callback ChangeCallback) func() {
	e.cbMutex.Lock()
	defer e.cbMutex.Unlock()

	id := e.nextID
	e.nextID++
	e.callbacks[id] = callback

	return func() {
		e.cbMutex.Lock()
		defer e.cbMutex.Unlock()
		delete(e.callbacks, id)
	}
}

// commit loads a locale and, on success, atomically replaces the current
// locale and fallback chain, then notifies callbacks when the locale
// actually changed
func (e *Engine) commit(ctx context.Context, tag string) error {
	_, err := e.store.Get(ctx, tag)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	old := e.current
	e.current = tag
	e.fallbacks = e.chain(tag)
	e.mutex.Unlock()

	if old != tag {
		e.notify(old, tag)
	}
	return nil
}

// chain computes the fallback chain for a tag, ensuring the engine default
// is its final entry
func (e *Engine) chain(tag string) []string {
	fallbacks := detector.Fallbacks(tag)

	if e.defaultLocale == tag {
		return fallbacks
	}
	for _, candidate := range fallbacks {
		if candidate == e.defaultLocale {
			return fallbacks
		}
	}
	return append(fallbacks, e.defaultLocale)
}

// lookup resolves a key within one locale. A missing locale or a missing
// key both report ok=false; only real load faults surface as errors.
func (e *Engine) lookup(ctx context.Context, tag string, key string) (string, bool, error) {
	doc, err := e.store.Get(ctx, tag)
	if err != nil {
		var notFound *source.NotFoundError
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, err
	}

	value, ok := doc.Lookup(key)
	return value, ok, nil
}

// snapshot returns a consistent view of the current locale and its fallback
// chain
func (e *Engine) snapshot() (string, []string) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	current := e.current
	if current == "" {
		current = e.defaultLocale
	}
	fallbacks := make([]string, len(e.fallbacks))
	copy(fallbacks, e.fallbacks)
	return current, fallbacks
}

// notify invokes every registered callback inside a recovery boundary so a
// panicking observer can never unwind into SetLocale
func (e *Engine) notify(old string, next string) {
	e.cbMutex.Lock()
	callbacks := make([]ChangeCallback, 0, len(e.callbacks))
	for _, callback := range e.callbacks {
		callbacks = append(callbacks, callback)
	}
	e.cbMutex.Unlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				r := recover()
				if r != nil {
					logger.Error().Interface("panic", r).Msg("locale change callback panicked")
				}
			}()
			callback(old, next)
		}()
	}
}

// checker periodically verifies that the current locale's cache entry is
// still valid. It never refetches on its own; an expired entry is simply
// refetched by the next lookup. Faults are swallowed so the checker keeps
// running until Stop.
func (e *Engine) checker() {
	defer close(e.done)

	ticker := time.NewTicker(e.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.check()
		}
	}
}

func (e *Engine) check() {
	defer func() {
		r := recover()
		if r != nil {
			logger.Error().Interface("panic", r).Msg("staleness check panicked")
		}
	}()

	current := e.GetCurrentLocale()
	if !e.store.IsCached(current) {
		logger.Debug().Str("locale", current).Msg("cached locale document expired, next access refetches")
	}
}
