// Package cache defines the key-value cache consumed by the route lookup
// service, plus its Redis implementation. The cache holds derived copies of
// durable data and is never the source of truth.
package cache

import "context"

type Cache interface {
	// Get returns the value stored under key. Absence is reported as
	// common.ErrCacheMiss, infrastructure failure as
	// common.ErrCacheUnavailable.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}
