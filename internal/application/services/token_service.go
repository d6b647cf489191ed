package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/domain/auth"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

const revokedKeyPrefix = "revoked:"

// registered claim names owned by the service; callers cannot override them through
// the payload
var reservedClaims = map[string]struct{}{
	"exp": {}, "iat": {}, "nbf": {}, "iss": {}, "sub": {}, "aud": {}, "jti": {},
}

// TokenService signs HS256 access tokens and keeps revoked token ids in a cache.
type TokenService struct {
	jwtConfig *config.JWTConfig
	revoked   ports.Cache
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTokenService(jwtConfig *config.JWTConfig, revoked ports.Cache, logger *logrus.Logger) *TokenService {
	return &TokenService{jwtConfig: jwtConfig, revoked: revoked, logger: logger, now: time.Now}
}

func (s *TokenService) GenerateToken(ctx context.Context, payload map[string]any, opts *auth.TokenOptions) (string, error) {
	if s.jwtConfig == nil || s.jwtConfig.Secret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	if opts == nil {
		opts = &auth.TokenOptions{}
	}

	ttl := opts.ExpiresIn
	if ttl <= 0 {
		ttl = s.jwtConfig.ExpirationTime
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = s.jwtConfig.Issuer
	}

	now := s.now()
	claims := jwt.MapClaims{}
	for k, v := range payload {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}
	claims["iss"] = issuer
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))
	claims["jti"] = uuid.NewString()
	if opts.Subject != "" {
		claims["sub"] = opts.Subject
	}
	if len(opts.Audience) > 0 {
		claims["aud"] = jwt.ClaimStrings(opts.Audience)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) VerifyToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if s.revoked != nil {
		_, found, err := s.revoked.Get(ctx, revokedKeyPrefix+claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if found {
			return nil, auth.ErrTokenRevoked
		}
	}
	return claims, nil
}

// RevokeToken marks the token id as revoked until the token would have expired anyway.
func (s *TokenService) RevokeToken(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return fmt.Errorf("token revocation store is not configured")
	}
	ttl := claims.TTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revokedKeyPrefix+claims.ID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"jti": claims.ID, "subject": claims.Subject}).Info("token revoked")
	}
	return nil
}

func (s *TokenService) parse(tokenString string) (*auth.Claims, error) {
	if s.jwtConfig == nil || s.jwtConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.jwtConfig.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.jwtConfig.Issuer))
	}

	mc := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, mc, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, auth.ErrInvalidToken
	}
	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (*auth.Claims, error) {
	jti, _ := mc["jti"].(string)
	if jti == "" {
		return nil, fmt.Errorf("%w: missing jti", auth.ErrInvalidToken)
	}
	claims := &auth.Claims{ID: jti, Payload: map[string]any{}}

	var errs []error
	var err error
	claims.Subject, err = mc.GetSubject()
	errs = append(errs, err)
	claims.Issuer, err = mc.GetIssuer()
	errs = append(errs, err)
	aud, err := mc.GetAudience()
	errs = append(errs, err)
	claims.Audience = aud
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	} else {
		errs = append(errs, err)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	} else {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	for k, v := range mc {
		if _, reserved := reservedClaims[k]; !reserved {
			claims.Payload[k] = v
		}
	}
	return claims, nil
}
