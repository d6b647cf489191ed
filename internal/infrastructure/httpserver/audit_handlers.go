package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/application/services"
	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/infrastructure/httpserver/helpers"
)

func (s *Server) searchAudit(c echo.Context) error {
	if s.auditSvc == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, services.ErrAuditUnavailable.Error())
	}
	q, err := auditQueryFromRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	page, err := s.auditSvc.Search(c.Request().Context(), q)
	if errors.Is(err, services.ErrAuditUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search audit events")
	}
	return c.JSON(http.StatusOK, page)
}

// auditQueryFromRequest reads subject, action, resource, target (prefix), since, until,
// limit and offset. Clamping is left to the audit service.
func auditQueryFromRequest(c echo.Context) (audit.Query, error) {
	q := audit.Query{
		Subject:      c.QueryParam("subject"),
		Action:       audit.Action(c.QueryParam("action")),
		Resource:     audit.Resource(c.QueryParam("resource")),
		TargetPrefix: c.QueryParam("target"),
	}
	for name, dst := range map[string]*time.Time{"since": &q.Since, "until": &q.Until} {
		if v := c.QueryParam(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return audit.Query{}, errors.New(name + " must be RFC3339")
			}
			*dst = t
		}
	}
	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		if v := c.QueryParam(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return audit.Query{}, errors.New(name + " must be a non-negative integer")
			}
			*dst = n
		}
	}
	return q, nil
}

// audit records an admin action against target. Failures are logged and never fail
// the request.
func (s *Server) audit(c echo.Context, action audit.Action, resource audit.Resource, target string, details any) {
	if s.auditSvc == nil {
		return
	}
	var subject string
	if claims, ok := helpers.GetClaimsRaw(c); ok && claims != nil {
		subject = claims.Subject
	}
	e, err := audit.NewEvent(subject, action, resource, target, details)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("action", action).Warn("audit event dropped")
		}
		return
	}
	e.IPAddress = c.RealIP()
	e.UserAgent = c.Request().UserAgent()
	_ = s.auditSvc.Record(c.Request().Context(), e)
}
