package cache

import "context"

// KeySerializer builds a cache key from an entity kind + arbitrary params.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(kind string, params ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the keyed read-through operations the cached entity
// services are built on. It is exported so callers can supply alternate cache
// backends (the default is the sturdyc adapter in internal/cacheinfra).
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	Clear(ctx context.Context) error
}

// GetOrFetch is a type-safe wrapper that adapts a typed fetch function to the
// untyped CacheService contract.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetch FetchFn[T]) (T, error) {
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, &KeyConflictError{Key: key}
	}
	return typed, nil
}

// KeyConflictError reports that a cache key held a value of an unexpected
// type, which means two call sites serialized different queries to the same key.
type KeyConflictError struct {
	Key string
}

func (e *KeyConflictError) Error() string {
	return "cache key conflict: " + e.Key
}
