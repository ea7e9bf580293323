package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const defaultCacheExpireSeconds = 60 * 10

var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through cache in front of another store. Every append
// bumps the kind generation, which invalidates all cached lists of that kind.
type CachedStore struct {
	store         Store
	cache         *freecache.Cache
	expireSeconds int

	mu          sync.Mutex
	generations map[Kind]int
}

func NewCachedStore(store Store, cacheSizeMB int) *CachedStore {
	if cacheSizeMB <= 0 {
		cacheSizeMB = 10
	}
	megabyte := 1024 * 1024
	return &CachedStore{
		store:         store,
		cache:         freecache.NewCache(cacheSizeMB * megabyte),
		expireSeconds: defaultCacheExpireSeconds,
		generations:   make(map[Kind]int),
	}
}

func (s *CachedStore) cacheKey(kind Kind, limit int) []byte {
	s.mu.Lock()
	gen := s.generations[kind]
	s.mu.Unlock()
	return []byte(fmt.Sprintf("history::%s::%d::%d", kind, gen, limit))
}

func (s *CachedStore) Append(ctx context.Context, entry Entry) error {
	if err := s.store.Append(ctx, entry); err != nil {
		return err
	}

	s.mu.Lock()
	s.generations[entry.Kind]++
	s.mu.Unlock()

	return nil
}

func (s *CachedStore) List(ctx context.Context, kind Kind, limit int) ([]Entry, error) {
	key := s.cacheKey(kind, limit)

	if cached, err := s.cache.Get(key); err == nil {
		var entries []Entry
		if err := json.Unmarshal(cached, &entries); err == nil {
			log.Tracef("history cache hit: %s", key)
			return entries, nil
		}
		log.Warnf("history cache, failed to unmarshal cached entries for %s", key)
	}

	entries, err := s.store.List(ctx, kind, limit)
	if err != nil {
		return nil, err
	}

	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("history cache, marshal entries: %s", err)
		return entries, nil
	}
	if err := s.cache.Set(key, entriesJson, s.expireSeconds); err != nil {
		log.Errorf("history cache, set %s: %s", key, err)
	}

	return entries, nil
}

// CacheHits is exposed for tests and debug endpoints.
func (s *CachedStore) CacheHits() int64 {
	return s.cache.HitCount()
}
