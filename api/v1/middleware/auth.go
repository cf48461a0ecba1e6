package middleware

import (
	"errors"
	"strings"

	"go_sitectl/internal/auth"
	"go_sitectl/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set for authenticated requests
const (
	KeyUsername = "username"
	KeyRole     = "role"
)

// AuthRequired validates the bearer token and requires role when it is
// not empty
func AuthRequired(tokens *auth.Tokens, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing or malformed bearer token"))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				httpx.FailErr(c, httpx.ErrTokenExpired(""))
			} else {
				httpx.FailErr(c, httpx.ErrInvalidToken(""))
			}
			c.Abort()
			return
		}
		if role != "" && claims.Role != role {
			httpx.FailErr(c, httpx.ErrUnauthorized("insufficient role"))
			c.Abort()
			return
		}

		c.Set(KeyUsername, claims.Username)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}
