package middleware

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/domain/cache"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

var cacheBypassTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "apicache_bypass_total",
	Help: "Total number of requests that skipped the response cache via bypass headers",
})

// ResponseCacheMiddleware serves cached responses and records new ones.
type ResponseCacheMiddleware struct {
	cache  ports.ResponseCacheService
	logger *logrus.Logger
}

func NewResponseCacheMiddleware(svc ports.ResponseCacheService, logger *logrus.Logger) *ResponseCacheMiddleware {
	return &ResponseCacheMiddleware{cache: svc, logger: logger}
}

// Cache returns middleware caching responses for duration, given in milliseconds or as
// an expression such as "5 minutes". Unparsable durations use the configured default.
//
// Cached responses are keyed by the raw request URL and replayed with their status and
// body only. Store failures never reach the client: the request is served as a miss.
func (m *ResponseCacheMiddleware) Cache(duration any) (echo.MiddlewareFunc, error) {
	if m == nil || m.cache == nil {
		return nil, cache.ErrStoreNotConfigured
	}
	ms := m.cache.Duration(duration)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if cache.IsBypass(req.Header, m.cache.Namespace()) {
				cacheBypassTotal.Inc()
				m.cache.Debugf("bypass detected, skipping cache.")
				return next(c)
			}

			key := cache.KeyFromRequest(req)
			if res := m.cache.Lookup(req.Context(), key); res.Hit() {
				return replay(c, res.Entry)
			}
			return m.serveAndStore(c, next, key, ms)
		}
	}, nil
}

// MustCache is like Cache but panics when the cache is not configured.
func (m *ResponseCacheMiddleware) MustCache(duration any) echo.MiddlewareFunc {
	mw, err := m.Cache(duration)
	if err != nil {
		panic(err)
	}
	return mw
}

// serveAndStore runs next with a capturing writer and persists whatever it emits.
// Persistence is detached from request cancellation.
func (m *ResponseCacheMiddleware) serveAndStore(c echo.Context, next echo.HandlerFunc, key string, ms int64) error {
	m.cache.Debugf("making response cacheable for key: %s", key)

	res := c.Response()
	original := res.Writer
	ctx := context.WithoutCancel(c.Request().Context())
	w := newCaptureWriter(original, func(status int, body []byte) {
		// the envelope is JSON text; binary bodies would come back mangled
		if !utf8.Valid(body) {
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"key": key, "bytes": len(body)}).Debug("response body is not valid UTF-8; not cached")
			}
			return
		}
		// errors are logged by the service; the response is already on its way
		_ = m.cache.Store(ctx, key, cache.NewEntry(status, body), ms)
	})
	res.Writer = w
	defer func() { res.Writer = original }()

	err := next(c)
	if err != nil && !w.wrote && m.logger != nil {
		m.logger.WithError(err).WithField("key", key).Debug("handler returned an error before responding; nothing cached")
	}
	w.finalize()
	return err
}

// replay writes a cached entry to the client.
func replay(c echo.Context, e *cache.Entry) error {
	c.Response().Header().Set(echo.HeaderCacheControl, cache.NoStoreCacheControl)

	switch data := e.Payload().(type) {
	case string:
		if data == "" {
			return c.NoContent(e.Status)
		}
		return c.HTML(e.Status, data)
	default:
		if e.Status == http.StatusNoContent || e.Status == http.StatusNotModified {
			return c.NoContent(e.Status)
		}
		return c.JSON(e.Status, data)
	}
}
