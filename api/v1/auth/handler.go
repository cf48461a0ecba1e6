package auth

import (
	"time"

	"go_sitectl/internal/auth"
	"go_sitectl/internal/config"
	"go_sitectl/internal/httpx"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	Token    string `json:"token"`
	ExpireAt string `json:"expireAt"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginHandler exchanges the configured admin credentials for a token
func LoginHandler(admin config.AdminConfig, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
			return
		}

		if err := auth.VerifyAdmin(admin.Username, admin.PasswordHash, req.Username, req.Password); err != nil {
			httpx.Log.WithField("username", req.Username).Warn("Rejected API login")
			httpx.FailErr(c, httpx.ErrUnauthorized("invalid credentials"))
			return
		}

		token, expireAt, err := tokens.Issue(req.Username, auth.RoleAdmin)
		if err != nil {
			httpx.FailErr(c, httpx.ErrInternalError("failed to generate token", err))
			return
		}

		httpx.OK(c, LoginResponse{
			Token:    token,
			ExpireAt: expireAt.Format(time.RFC3339),
			Username: req.Username,
			Role:     auth.RoleAdmin,
		})
	}
}
