package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/core/ports"
	"github.com/avatarctic/service-kit/internal/infrastructure/storage"
)

const maxUploadBytes = 32 << 20

func (s *Server) requireObjects() error {
	if s.objects == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "object storage is not configured")
	}
	return nil
}

func (s *Server) listFiles(c echo.Context) error {
	if err := s.requireObjects(); err != nil {
		return err
	}
	objects, err := s.objects.List(c.Request().Context(), "", c.QueryParam("prefix"))
	if err != nil {
		return s.storageError(err)
	}
	if objects == nil {
		objects = []ports.ObjectInfo{}
	}
	return c.JSON(http.StatusOK, map[string]any{"objects": objects})
}

// uploadFile stores the multipart "file" field. The key is the sanitized file name,
// optionally below ?prefix=.
func (s *Server) uploadFile(c echo.Context) error {
	if err := s.requireObjects(); err != nil {
		return err
	}
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read upload")
	}
	defer f.Close()

	key := storage.SanitizeName(fh.Filename)
	if prefix := strings.Trim(c.QueryParam("prefix"), "/"); prefix != "" {
		key = prefix + "/" + key
	}
	info, err := s.objects.Upload(c.Request().Context(), &ports.UploadInput{
		Key:         key,
		Body:        f,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	})
	if err != nil {
		return s.storageError(err)
	}

	s.audit(c, audit.ActionUpload, audit.ResourceObject, info.Key, map[string]any{"size": info.Size})
	return c.JSON(http.StatusCreated, info)
}

func (s *Server) downloadFile(c echo.Context) error {
	if err := s.requireObjects(); err != nil {
		return err
	}
	body, info, err := s.objects.Download(c.Request().Context(), "", c.Param("*"))
	if err != nil {
		return s.storageError(err)
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, body)
}

func (s *Server) deleteFile(c echo.Context) error {
	if err := s.requireObjects(); err != nil {
		return err
	}
	key := c.Param("*")
	if err := s.objects.Delete(c.Request().Context(), "", key); err != nil {
		return s.storageError(err)
	}
	s.audit(c, audit.ActionDelete, audit.ResourceObject, key, nil)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) storageError(err error) error {
	switch {
	case errors.Is(err, ports.ErrObjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "object not found")
	case errors.Is(err, ports.ErrBucketRequired):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if s.logger != nil {
		s.logger.WithError(err).Error("object storage request failed")
	}
	return echo.NewHTTPError(http.StatusBadGateway, "object storage request failed")
}
