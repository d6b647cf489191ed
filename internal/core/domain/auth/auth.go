package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidToken covers malformed, badly signed, expired or foreign-issuer tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked is returned for tokens that were explicitly revoked.
	ErrTokenRevoked = errors.New("token is revoked")
)

// TokenOptions overrides the configured defaults for a single token.
type TokenOptions struct {
	ExpiresIn time.Duration
	Issuer    string
	Subject   string
	Audience  []string
}

// Claims represents a verified token: registered claims plus the caller payload.
type Claims struct {
	ID        string         `json:"jti"`
	Subject   string         `json:"sub,omitempty"`
	Issuer    string         `json:"iss"`
	Audience  []string       `json:"aud,omitempty"`
	IssuedAt  time.Time      `json:"iat"`
	ExpiresAt time.Time      `json:"exp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// TTL returns the remaining lifetime of the token, zero once expired.
func (c *Claims) TTL() time.Duration {
	ttl := time.Until(c.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// AuthTokens is returned to clients after issuing a token.
type AuthTokens struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
