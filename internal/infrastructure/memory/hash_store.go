package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// ErrWriteRejected is returned when ristretto drops a write or its admission policy
// refuses the record.
var ErrWriteRejected = errors.New("memory store rejected the write")

// HashStore is an in-process ports.HashStore backed by ristretto. Every key costs one
// unit, so MaxEntries bounds the number of cached responses. Records are local to the
// process; use the Redis store when several instances share a cache.
type HashStore struct {
	mu sync.Mutex
	c  *ristretto.Cache
}

// NewHashStore creates a store holding at most maxEntries records.
func NewHashStore(maxEntries int64) (*HashStore, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &HashStore{c: c}, nil
}

func (s *HashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for f, v := range s.fields(key) {
		out[f] = v
	}
	return out, nil
}

// HSet keeps the remaining lifetime of an existing record.
func (s *HashStore) HSet(ctx context.Context, key, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := map[string]string{}
	for f, v := range s.fields(key) {
		next[f] = v
	}
	next[field] = value

	var ttl time.Duration
	if remaining, ok := s.c.GetTTL(key); ok {
		ttl = remaining
	}
	return s.set(key, next, ttl)
}

// Expire follows Redis: a non-positive ttl removes the record.
func (s *HashStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.c.Get(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		s.c.Del(key)
		s.c.Wait()
		return nil
	}
	m, _ := fields.(map[string]string)
	return s.set(key, m, ttl)
}

func (s *HashStore) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Del(key)
	s.c.Wait()
	return nil
}

// Clear drops every record. The store owns the whole cache, so a full clear is always
// scoped; the number of removed records is not tracked.
func (s *HashStore) Clear(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Clear()
	return 0, nil
}

// Close releases the ristretto goroutines.
func (s *HashStore) Close() {
	s.c.Close()
}

// set writes the record and waits until ristretto has applied it.
func (s *HashStore) set(key string, fields map[string]string, ttl time.Duration) error {
	if !s.c.SetWithTTL(key, fields, 1, ttl) {
		return ErrWriteRejected
	}
	s.c.Wait()
	if _, ok := s.c.Get(key); !ok {
		return ErrWriteRejected
	}
	return nil
}

func (s *HashStore) fields(key string) map[string]string {
	v, ok := s.c.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]string)
	return m
}
