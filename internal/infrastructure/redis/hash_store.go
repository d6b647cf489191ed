package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/service-kit/internal/core/domain/cache"
)

const clearScanCount = 500

// HashStore implements ports.HashStore on Redis hashes. Cached responses live under
// "<prefix>:<key>"; the prefix also bounds what Clear may delete.
type HashStore struct {
	r      redis.Cmdable
	prefix string
}

// NewHashStore creates a Redis hash store. An empty prefix disables Clear.
func NewHashStore(r redis.Cmdable, prefix string) *HashStore {
	return &HashStore{r: r, prefix: prefix}
}

func (s *HashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.r.HGetAll(ctx, namespaced(s.prefix, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return fields, nil
}

func (s *HashStore) HSet(ctx context.Context, key, field, value string) error {
	if err := s.r.HSet(ctx, namespaced(s.prefix, key), field, value).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Expire sets the record TTL. Whole seconds use EXPIRE, anything finer PEXPIRE; a
// non-positive ttl expires the record immediately, as Redis does.
func (s *HashStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ns := namespaced(s.prefix, key)
	var cmd *redis.BoolCmd
	if ttl > 0 && ttl%time.Second != 0 {
		cmd = s.r.PExpire(ctx, ns, ttl)
	} else {
		cmd = s.r.Expire(ctx, ns, ttl)
	}
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

func (s *HashStore) Del(ctx context.Context, key string) error {
	if err := s.r.Del(ctx, namespaced(s.prefix, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear deletes every record under the store prefix using SCAN so the server is never
// blocked by KEYS.
func (s *HashStore) Clear(ctx context.Context) (int64, error) {
	if s.prefix == "" {
		return 0, cache.ErrGlobalClearUnsupported
	}

	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := s.r.Scan(ctx, cursor, s.prefix+":*", clearScanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.r.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
