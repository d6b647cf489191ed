package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/domain/cache"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

// ResponseCacheConfig configures a ResponseCacheService.
type ResponseCacheConfig struct {
	Store ports.HashStore
	Debug bool
	// DefaultDuration in milliseconds, used when a route duration cannot be parsed.
	DefaultDuration int64
	// Namespace used in the bypass header names.
	Namespace string
}

// ResponseCacheService implements ports.ResponseCacheService. It keeps no state besides
// its configuration: all coordination happens in the store.
type ResponseCacheService struct {
	store           ports.HashStore
	debug           bool
	defaultDuration int64
	namespace       string
	logger          *logrus.Logger
}

// NewResponseCacheService validates cfg and creates the service.
func NewResponseCacheService(cfg *ResponseCacheConfig, logger *logrus.Logger) (*ResponseCacheService, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, cache.ErrStoreNotConfigured
	}
	def := cfg.DefaultDuration
	if def <= 0 {
		def = cache.DefaultDurationMillis
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = cache.DefaultNamespace
	}
	return &ResponseCacheService{
		store:           cfg.Store,
		debug:           cfg.Debug,
		defaultDuration: def,
		namespace:       ns,
		logger:          logger,
	}, nil
}

func (s *ResponseCacheService) Namespace() string { return s.namespace }

func (s *ResponseCacheService) Duration(input any) int64 {
	return cache.ParseDuration(input, s.defaultDuration)
}

// Debugf logs only when the debug flag is on.
func (s *ResponseCacheService) Debugf(format string, args ...any) {
	if s.debug && s.logger != nil {
		s.logger.WithField("component", "apicache").Infof(format, args...)
	}
}

// Lookup fetches the stored response for key. Failures are reported through the
// result outcome, never as an error to the caller.
func (s *ResponseCacheService) Lookup(ctx context.Context, key string) cache.LookupResult {
	res := s.lookup(ctx, key)
	cacheLookups.WithLabelValues(res.Outcome.String()).Inc()
	return res
}

func (s *ResponseCacheService) lookup(ctx context.Context, key string) cache.LookupResult {
	fields, err := s.store.HGetAll(ctx, key)
	if err != nil {
		cacheErrors.WithLabelValues("lookup").Inc()
		s.warn(err, key, "cache lookup failed; serving as miss")
		return cache.LookupResult{Outcome: cache.OutcomeUnavailable, Err: fmt.Errorf("%w: %v", cache.ErrStoreUnavailable, err)}
	}

	raw, ok := fields[cache.FieldResponse]
	if !ok || raw == "" {
		s.Debugf("cache miss for %s", key)
		return cache.LookupResult{Outcome: cache.OutcomeMiss}
	}

	entry, err := cache.UnmarshalEntry([]byte(raw))
	if err != nil {
		s.warn(err, key, "malformed cache record; serving as miss")
		return cache.LookupResult{Outcome: cache.OutcomeMalformed, Err: err}
	}

	s.Debugf("sending cached version of %s", key)
	return cache.LookupResult{Outcome: cache.OutcomeHit, Entry: entry}
}

// Store persists entry under key: the envelope and the duration as hash fields, then
// the record expiry. It makes a single attempt and stops at the first failure.
func (s *ResponseCacheService) Store(ctx context.Context, key string, entry *cache.Entry, durationMillis int64) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", cache.ErrMalformedRecord)
	}
	payload, err := entry.Marshal()
	if err != nil {
		s.warn(err, key, "failed to encode response for cache")
		return err
	}

	if err := s.store.HSet(ctx, key, cache.FieldResponse, string(payload)); err != nil {
		return s.storeFailed(err, key)
	}
	if err := s.store.HSet(ctx, key, cache.FieldDuration, strconv.FormatInt(durationMillis, 10)); err != nil {
		return s.storeFailed(err, key)
	}
	if err := s.store.Expire(ctx, key, time.Duration(durationMillis)*time.Millisecond); err != nil {
		return s.storeFailed(err, key)
	}

	cacheWrites.Inc()
	s.Debugf("response cached for key %s", key)
	return nil
}

// Clear removes a single cached response, or every response the store owns when
// target is empty. Store failures are logged and returned wrapped in
// cache.ErrStoreUnavailable; a store that cannot scope a full clear makes it a no-op.
func (s *ResponseCacheService) Clear(ctx context.Context, target string) error {
	if s == nil || s.store == nil {
		return cache.ErrStoreNotConfigured
	}

	if target != "" {
		s.Debugf("clearing cached entry for %s", target)
		if err := s.store.Del(ctx, target); err != nil {
			cacheErrors.WithLabelValues("clear").Inc()
			s.warn(err, target, "failed to clear cached entry")
			return fmt.Errorf("%w: %v", cache.ErrStoreUnavailable, err)
		}
		return nil
	}

	s.Debugf("clearing entire index")
	n, err := s.store.Clear(ctx)
	if errors.Is(err, cache.ErrGlobalClearUnsupported) {
		if s.logger != nil {
			s.logger.WithField("component", "apicache").Warn("global cache clear requested but store is not namespaced; nothing cleared")
		}
		return nil
	}
	if err != nil {
		cacheErrors.WithLabelValues("clear").Inc()
		s.warn(err, "*", "failed to clear cache index")
		return fmt.Errorf("%w: %v", cache.ErrStoreUnavailable, err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"component": "apicache", "removed": n}).Info("cache index cleared")
	}
	return nil
}

func (s *ResponseCacheService) storeFailed(err error, key string) error {
	cacheErrors.WithLabelValues("store").Inc()
	s.warn(err, key, "failed to cache response")
	return fmt.Errorf("%w: %v", cache.ErrStoreUnavailable, err)
}

func (s *ResponseCacheService) warn(err error, key, msg string) {
	if s.logger == nil {
		return
	}
	s.logger.WithError(err).WithFields(logrus.Fields{"component": "apicache", "key": key}).Warn(msg)
}
