package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

// ErrAuditUnavailable is returned when the journal is searched without a database.
var ErrAuditUnavailable = errors.New("audit log storage is not configured")

// AuditService writes every event to the log and, when a repository is configured,
// to the database as well.
type AuditService struct {
	repo   ports.AuditRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewAuditService(repo ports.AuditRepository, logger *logrus.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

func (s *AuditService) Record(ctx context.Context, e *audit.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}

	entry := s.entry(e)
	if entry != nil {
		entry.Info("audit")
	}
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		if entry != nil {
			entry.WithError(err).Error("failed to persist audit event")
		}
		return err
	}
	return nil
}

func (s *AuditService) Search(ctx context.Context, q audit.Query) (*audit.Page, error) {
	if s.repo == nil {
		return nil, ErrAuditUnavailable
	}
	page, err := s.repo.Search(ctx, q.Normalized())
	if err != nil {
		return nil, err
	}
	if page.Events == nil {
		page.Events = []*audit.Event{}
	}
	return page, nil
}

func (s *AuditService) entry(e *audit.Event) *logrus.Entry {
	if s.logger == nil {
		return nil
	}
	return s.logger.WithFields(logrus.Fields{
		"audit_id": e.ID,
		"subject":  e.Subject,
		"action":   e.Action,
		"resource": e.Resource,
		"target":   e.Target,
	})
}
