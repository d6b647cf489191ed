package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/ports"
	customMiddleware "github.com/avatarctic/service-kit/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	// CacheDuration applies to cached routes, e.g. "1 hour" or a number of milliseconds.
	CacheDuration string
}

// ServerDeps groups the services handlers depend on. Mailer, ObjectStore and
// ResponseCache are optional: their routes answer 503 or run uncached when nil.
type ServerDeps struct {
	TokenService   ports.TokenService
	ResponseCache  ports.ResponseCacheService
	Mailer         ports.Mailer
	ObjectStore    ports.ObjectStore
	AuditService   ports.AuditService
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	tokenSvc       ports.TokenService
	cacheSvc       ports.ResponseCacheService
	mailer         ports.Mailer
	objects        ports.ObjectStore
	auditSvc       ports.AuditService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		tokenSvc:       deps.TokenService,
		cacheSvc:       deps.ResponseCache,
		mailer:         deps.Mailer,
		objects:        deps.ObjectStore,
		auditSvc:       deps.AuditService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.TokenService,
			deps.ResponseCache,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
