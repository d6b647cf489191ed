package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/core/domain/auth"
	"github.com/avatarctic/service-kit/internal/infrastructure/httpserver/helpers"
)

func (s *Server) verifyToken(c echo.Context) error {
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claims)
}

// refreshToken issues a new token carrying the caller's subject, audience and payload.
// The presented token stays valid until it expires or is revoked.
func (s *Server) refreshToken(c echo.Context) error {
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}

	var req struct {
		ExpiresIn string `json:"expires_in"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	opts := &auth.TokenOptions{Subject: claims.Subject, Audience: claims.Audience}
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "expires_in must be a positive duration such as 30m")
		}
		opts.ExpiresIn = d
	}

	token, err := s.tokenSvc.GenerateToken(c.Request().Context(), claims.Payload, opts)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("subject", claims.Subject).Error("failed to issue token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	issued, err := s.tokenSvc.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, &auth.AuthTokens{
		AccessToken: token,
		ExpiresIn:   int64(issued.TTL().Seconds()),
	})
}

func (s *Server) logout(c echo.Context) error {
	token, ok := helpers.GetTokenRaw(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token context")
	}
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}

	if err := s.tokenSvc.RevokeToken(c.Request().Context(), token); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("subject", claims.Subject).Error("failed to revoke token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to logout")
	}
	s.audit(c, audit.ActionRevoke, audit.ResourceToken, claims.ID, nil)

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out successfully"})
}
