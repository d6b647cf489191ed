package httpserver

import (
	"github.com/labstack/echo/v4"
)

const adminRole = "admin"

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.GET("/geo/distance", s.geoDistance, s.cached()...)

	protected := api.Group("")
	protected.Use(s.middleware.JWT.RequireJWT())

	auth := protected.Group("/auth")
	auth.GET("/verify", s.verifyToken)
	auth.POST("/token", s.refreshToken)
	auth.POST("/logout", s.logout)

	admin := protected.Group("/admin", s.middleware.JWT.RequireRole(adminRole))
	admin.DELETE("/cache", s.clearCache)
	admin.POST("/mail", s.sendMail)
	admin.GET("/files", s.listFiles)
	admin.POST("/files", s.uploadFile)
	admin.GET("/files/*", s.downloadFile)
	admin.DELETE("/files/*", s.deleteFile)
	admin.GET("/audit", s.searchAudit)
}

// cached returns the response cache middleware for a route, or nothing when the cache
// is not configured so the route is served uncached.
func (s *Server) cached() []echo.MiddlewareFunc {
	mw, err := s.middleware.ResponseCache.Cache(s.config.CacheDuration)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("response cache disabled")
		}
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
