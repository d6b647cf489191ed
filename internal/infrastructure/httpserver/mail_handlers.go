package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

func (s *Server) sendMail(c echo.Context) error {
	if s.mailer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "mailer is not configured")
	}
	var req ports.MailOptions
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := s.mailer.Send(c.Request().Context(), &req)
	switch {
	case errors.Is(err, ports.ErrNoRecipients), errors.Is(err, ports.ErrEmptyContent), errors.Is(err, ports.ErrTemplateNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, "failed to send email")
	}

	s.audit(c, audit.ActionSend, audit.ResourceMail, res.MessageID, map[string]any{"to": req.To, "subject": req.Subject})
	return c.JSON(http.StatusAccepted, res)
}
