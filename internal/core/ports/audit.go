package ports

import (
	"context"

	"github.com/avatarctic/service-kit/internal/core/domain/audit"
)

// AuditRepository persists the journal of administrative actions.
type AuditRepository interface {
	Insert(ctx context.Context, e *audit.Event) error
	Search(ctx context.Context, q audit.Query) (*audit.Page, error)
}

// AuditService records administrative actions. Without a repository it only logs.
type AuditService interface {
	Record(ctx context.Context, e *audit.Event) error
	Search(ctx context.Context, q audit.Query) (*audit.Page, error)
}
