package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
)

// clearCache removes one cached response (?key=<request uri>) or, without a key, every
// response the cache owns. Store failures are logged but the request still succeeds.
func (s *Server) clearCache(c echo.Context) error {
	if s.cacheSvc == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "response cache is not configured")
	}
	key := c.QueryParam("key")
	if err := s.cacheSvc.Clear(c.Request().Context(), key); err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache clear did not complete")
	}

	target := key
	if target == "" {
		target = audit.TargetAll
	}
	s.audit(c, audit.ActionClear, audit.ResourceResponseCache, target, nil)
	return c.NoContent(http.StatusNoContent)
}
