package common

import "time"

// CacheInterface is the small key/value contract the services depend on.
type CacheInterface interface {
	Set(key string, value interface{}, duration time.Duration)

	// Get returns the value and true if found, nil and false otherwise
	Get(key string) (interface{}, bool)

	Delete(key string)

	// GetOrSet returns the cached value or stores whatever loader returns.
	// Loader errors are not cached.
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	// Flush drops every entry
	Flush()
}
