package ports

import (
	"context"

	"github.com/avatarctic/service-kit/internal/core/domain/auth"
)

// TokenService issues and verifies signed access tokens.
type TokenService interface {
	GenerateToken(ctx context.Context, payload map[string]any, opts *auth.TokenOptions) (string, error)
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
	RevokeToken(ctx context.Context, token string) error
}
