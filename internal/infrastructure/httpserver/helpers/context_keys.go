package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/service-kit/internal/core/domain/auth"
)

type ctxKey string

const (
	keyClaims ctxKey = "claims"
	keyToken  ctxKey = "token"
)

func SetClaims(c echo.Context, claims *auth.Claims) { c.Set(string(keyClaims), claims) }
func GetClaimsRaw(c echo.Context) (*auth.Claims, bool) {
	v := c.Get(string(keyClaims))
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func SetToken(c echo.Context, token string) { c.Set(string(keyToken), token) }
func GetTokenRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyToken))
	s, ok := v.(string)
	return s, ok
}
