package v1

import (
	"time"

	"go_sitectl/api/v1/auth"
	"go_sitectl/api/v1/middleware"
	"go_sitectl/api/v1/sites"
	authn "go_sitectl/internal/auth"
	"go_sitectl/internal/config"
	"go_sitectl/internal/httpx"

	"github.com/gin-gonic/gin"
)

// SetupRouter mounts the v1 API: login, then bearer-protected site routes
func SetupRouter(r *gin.Engine, cfg *config.Config, svc sites.Service) {
	tokens := authn.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)

	v1 := r.Group("/api/v1")
	v1.GET("/ping", pingHandler)
	v1.POST("/auth/login", auth.LoginHandler(cfg.Admin, tokens))

	protected := v1.Group("")
	protected.Use(middleware.AuthRequired(tokens, authn.RoleAdmin))
	protected.GET("/me", meHandler)
	sites.NewHandler(svc).Register(protected.Group("/sites"))
}

func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{"pong": true})
}

// meHandler returns the authenticated user
func meHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"username": c.GetString(middleware.KeyUsername),
		"role":     c.GetString(middleware.KeyRole),
	})
}
