package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ServiceName tags the lifecycle log lines.
const ServiceName = "service-kit"

// Start serves until Shutdown, which makes it return http.ErrServerClosed. TLS is used
// when both a certificate and a key are configured; the timeouts apply either way.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	tls := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	s.echo.HidePort = true

	if s.logger != nil {
		entry := s.lifecycleEntry().WithFields(logrus.Fields{
			"addr":           addr,
			"tls":            tls,
			"cache_duration": s.config.CacheDuration,
		})
		entry.Info("starting HTTP server")
		if !tls {
			entry.Warn("TLS certificates not configured; serving plain HTTP")
		}
	}

	if tls {
		s.applyTimeouts(s.echo.TLSServer)
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	// echo.Shutdown only stops its own Server and TLSServer
	s.applyTimeouts(s.echo.Server)
	return s.echo.Start(addr)
}

func (s *Server) applyTimeouts(server *http.Server) {
	server.ReadTimeout = s.config.ReadTimeout
	server.WriteTimeout = s.config.WriteTimeout
	server.IdleTimeout = s.config.IdleTimeout
}

// Shutdown drains in-flight requests. Background cache writes are detached from request
// contexts and are not waited for.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if s.logger != nil {
		entry := s.lifecycleEntry()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Error("HTTP server shutdown failed")
		} else {
			entry.Info("HTTP server stopped")
		}
	}
	return err
}

// Addr is the bound listener address, or nil before Start has opened it.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) lifecycleEntry() *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"service":     ServiceName,
		"environment": s.config.Environment,
	})
}
