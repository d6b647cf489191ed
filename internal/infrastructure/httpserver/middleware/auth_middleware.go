package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/domain/auth"
	"github.com/avatarctic/service-kit/internal/core/ports"
	"github.com/avatarctic/service-kit/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	tokenService ports.TokenService
	logger       *logrus.Logger
}

func NewJWTMiddleware(tokenService ports.TokenService, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{tokenService: tokenService, logger: logger}
}

// RequireJWT creates middleware that validates bearer tokens and stores the claims in
// the request context.
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}

			claims, err := m.tokenService.VerifyToken(c.Request().Context(), tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("JWT validation failed")
				}
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenRevoked) {
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "unable to validate token")
			}

			helpers.SetClaims(c, claims)
			helpers.SetToken(c, tokenString)

			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"subject": claims.Subject, "jti": claims.ID}).Debug("jwt validated and claims set")
			}
			return next(c)
		}
	}
}

// RequireRole allows the request when the verified token carries role in its "role"
// claim, either as a string or in a list. It must run after RequireJWT.
func (m *JWTMiddleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := helpers.GetClaimsFromContext(c)
			if err != nil {
				return err
			}
			if !hasRole(claims.Payload["role"], role) {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"subject": claims.Subject, "required": role}).Warn("role check failed")
				}
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

func hasRole(v any, role string) bool {
	switch r := v.(type) {
	case string:
		return r == role
	case []any:
		for _, item := range r {
			if s, ok := item.(string); ok && s == role {
				return true
			}
		}
	case []string:
		for _, s := range r {
			if s == role {
				return true
			}
		}
	}
	return false
}
