package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valentin-kaiser/go-locale/apperror"
	"github.com/valentin-kaiser/go-locale/document"
)

// DefaultRedisPrefix namespaces the keys written by a RedisStore
const DefaultRedisPrefix = "golocale:"

// RedisStore is a document cache backed by Redis, for deployments where
// several processes should share one set of fetched documents. Documents are
// serialized as JSON and expiry is delegated to Redis, so a TTL of zero
// means every Get refetches.
type RedisStore struct {
	client   redis.UniversalClient
	resolver Resolver
	ttl      time.Duration
	prefix   string
	mutex    sync.Mutex
	stats    Stats
}

// NewRedisStore creates a Redis-backed store that resolves misses through
// the given resolver
func NewRedisStore(client redis.UniversalClient, resolver Resolver, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		resolver: resolver,
		ttl:      ttl,
		prefix:   DefaultRedisPrefix,
	}
}

// WithPrefix sets the key prefix used in Redis
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

// Get returns the cached document for a locale while Redis still holds it,
// otherwise it resolves a fresh one, stores it with the configured TTL and
// returns it
func (s *RedisStore) Get(ctx context.Context, locale string) (document.Node, error) {
	data, err := s.client.Get(ctx, s.key(locale)).Bytes()
	if err == nil {
		doc, derr := s.decode(data)
		if derr == nil {
			s.count(func(st *Stats) { st.Hits++ })
			return doc, nil
		}
		// Undecodable entries are treated as a miss and overwritten
		logger.Warn().Err(derr).Str("locale", locale).Msg("discarding corrupt cache entry")
	} else if err != redis.Nil {
		return nil, apperror.NewError("reading locale document from redis failed").AddError(err)
	}

	s.count(func(st *Stats) { st.Misses++ })
	return s.fetch(ctx, locale)
}

// Refresh resolves a fresh document for the locale regardless of the cached
// entry
func (s *RedisStore) Refresh(ctx context.Context, locale string) (document.Node, error) {
	s.count(func(st *Stats) { st.Refreshes++ })
	return s.fetch(ctx, locale)
}

// Invalidate removes the entry for one locale
func (s *RedisStore) Invalidate(locale string) {
	err := s.client.Del(context.Background(), s.key(locale)).Err()
	if err != nil {
		logger.Error().Err(err).Str("locale", locale).Msg("invalidating cache entry failed")
	}
}

// InvalidateAll removes every entry below the configured prefix
func (s *RedisStore) InvalidateAll() {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := s.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Error().Err(err).Str("key", iter.Val()).Msg("invalidating cache entry failed")
		}
	}
	if err := iter.Err(); err != nil {
		logger.Error().Err(err).Msg("scanning cache entries failed")
	}
}

// IsCached reports whether Redis still holds an unexpired entry for the
// locale
func (s *RedisStore) IsCached(locale string) bool {
	count, err := s.client.Exists(context.Background(), s.key(locale)).Result()
	return err == nil && count > 0
}

// Locales returns a snapshot of the locale tags currently held in Redis
func (s *RedisStore) Locales() []string {
	ctx := context.Background()
	var locales []string

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		locales = append(locales, iter.Val()[len(s.prefix):])
	}
	if err := iter.Err(); err != nil {
		logger.Error().Err(err).Msg("scanning cache entries failed")
	}
	return locales
}

// Stats returns a snapshot of the hit/miss counters
func (s *RedisStore) Stats() Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

func (s *RedisStore) fetch(ctx context.Context, locale string) (document.Node, error) {
	doc, err := s.resolver.Resolve(ctx, locale)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc.ToAny())
	if err != nil {
		return nil, apperror.NewError("encoding locale document failed").AddError(err)
	}

	// A zero TTL is stored with a minimal expiry so the entry is gone by the
	// next access, matching the "always refetch" contract of the memory store
	ttl := s.ttl
	if ttl <= 0 {
		ttl = time.Millisecond
	}

	err = s.client.Set(ctx, s.key(locale), data, ttl).Err()
	if err != nil {
		logger.Error().Err(err).Str("locale", locale).Msg("storing locale document failed")
	}
	return doc, nil
}

func (s *RedisStore) decode(data []byte) (document.Node, error) {
	var raw map[string]interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, err
	}
	node, _ := document.NodeFromAny(raw)
	return node, nil
}

func (s *RedisStore) key(locale string) string {
	return s.prefix + locale
}

func (s *RedisStore) count(mutate func(*Stats)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	mutate(&s.stats)
}
