package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService is an in-process cache backed by go-cache.
type CacheService struct {
	cache *cache.Cache
}

var _ CacheInterface = (*CacheService)(nil)

// NewCacheService builds a cache. A zero cleanupInterval disables the
// janitor goroutine, which is what short-lived per-run caches want.
func NewCacheService(defaultExpiration, cleanupInterval time.Duration) *CacheService {
	return &CacheService{cache: cache.New(defaultExpiration, cleanupInterval)}
}

// NewRunCache returns a cache whose entries never expire. It is meant to be
// dropped with the operation that created it.
func NewRunCache() *CacheService {
	return NewCacheService(cache.NoExpiration, 0)
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.cache.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

func (cs *CacheService) GetOrSet(
	key string,
	duration time.Duration,
	loader func() (any, error)) (interface{}, error) {
	if val, found := cs.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.Set(key, val, duration)
	return val, nil
}

func (cs *CacheService) Flush() {
	cs.cache.Flush()
}

// ItemCount is mainly useful in tests.
func (cs *CacheService) ItemCount() int {
	return cs.cache.ItemCount()
}
