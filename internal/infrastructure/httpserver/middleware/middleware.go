package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	JWT           *JWTMiddleware
	Logging       *LoggingMiddleware
	Metrics       *MetricsMiddleware
	ResponseCache *ResponseCacheMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(
	tokenService ports.TokenService,
	responseCache ports.ResponseCacheService,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	return &MiddlewareCollection{
		JWT:           NewJWTMiddleware(tokenService, logger),
		Logging:       NewLoggingMiddleware(logger),
		Metrics:       NewMetricsMiddleware(requestsTotal, requestDuration),
		ResponseCache: NewResponseCacheMiddleware(responseCache, logger),
	}
}
