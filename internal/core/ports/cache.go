package ports

import (
	"context"
	"time"

	"github.com/avatarctic/service-kit/internal/core/domain/cache"
)

// Cache defines a minimal key-value cache contract.
// Implementations should degrade gracefully (returning an error without crashing callers).
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}

// HashStore is the hash-field key-value store backing the response cache.
// Expiry of records is entirely the store's responsibility.
type HashStore interface {
	// HGetAll returns every field of key; an absent key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key, field, value string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Clear removes every record owned by the store and returns how many were removed.
	// Stores that cannot scope the clear return cache.ErrGlobalClearUnsupported.
	Clear(ctx context.Context) (int64, error)
}

// ResponseCacheService looks up, stores and clears cached HTTP responses.
type ResponseCacheService interface {
	Lookup(ctx context.Context, key string) cache.LookupResult
	Store(ctx context.Context, key string, entry *cache.Entry, durationMillis int64) error
	// Clear deletes target, or every cached response when target is empty.
	Clear(ctx context.Context, target string) error
	// Duration parses a duration against the configured default.
	Duration(input any) int64
	Namespace() string
	Debugf(format string, args ...any)
}
