package sites

import (
	"context"
	"fmt"

	"go_sitectl/internal/httpx"
	"go_sitectl/internal/model"
	"go_sitectl/internal/site"

	"github.com/gin-gonic/gin"
)

// Service is the lifecycle engine as the API uses it
type Service interface {
	Get(ctx context.Context, url string) (*model.Site, error)
	List(ctx context.Context, status string) ([]model.Site, error)
	Create(ctx context.Context, opts site.CreateOptions) (*model.Site, error)
	Delete(ctx context.Context, url string) error
	Update(ctx context.Context, url, newType string) error
	Backup(ctx context.Context, url, location string, force bool) (string, error)
	Enable(ctx context.Context, url string, force bool) error
	Disable(ctx context.Context, url string) error
	Restart(ctx context.Context, url string, services []string, all bool) error
	Reload(ctx context.Context, url string, services []string, all bool) error
	SSL(ctx context.Context, url string, force bool) error
	Renew(ctx context.Context, url string) (bool, error)
}

// Handler serves site lifecycle endpoints
type Handler struct {
	svc Service
}

// NewHandler creates handler
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the site routes on g
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:url", h.Get)
	g.DELETE("/:url", h.Delete)
	g.POST("/:url/update", h.Update)
	g.POST("/:url/backup", h.Backup)
	g.POST("/:url/enable", h.Enable)
	g.POST("/:url/disable", h.Disable)
	g.POST("/:url/restart", h.Restart)
	g.POST("/:url/reload", h.Reload)
	g.POST("/:url/ssl", h.SSL)
	g.POST("/:url/ssl/renew", h.Renew)
}

// opContext detaches a lifecycle operation from the request: a client
// that disconnects must not abort a half-provisioned site
func opContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// ListRequest filters the site list
type ListRequest struct {
	Status string `form:"status"` // enabled|disabled, empty for all
}

// List lists sites
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid query parameters"))
		return
	}
	switch req.Status {
	case "", "all", "enabled", "disabled":
	default:
		httpx.FailErr(c, httpx.ErrParamIllegal("status must be enabled, disabled or all"))
		return
	}

	sites, err := h.svc.List(c.Request.Context(), req.Status)
	if err != nil {
		httpx.FailErr(c, httpx.ErrInternalError("failed to list sites", err))
		return
	}
	items := make([]SiteDTO, 0, len(sites))
	for i := range sites {
		items = append(items, toDTO(&sites[i]))
	}
	httpx.OKItems(c, items, len(items))
}

// Get returns one site
func (h *Handler) Get(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), c.Param("url"))
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OK(c, toDTO(s))
}

// CreateRequest describes a new site
type CreateRequest struct {
	URL      string `json:"url" binding:"required"`
	Type     string `json:"type"`
	SSL      string `json:"ssl"`
	Wildcard bool   `json:"wildcard"`
}

// Create provisions a site
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	if req.Type == "" {
		req.Type = model.SiteTypeHTML
	}

	s, err := h.svc.Create(opContext(c), site.CreateOptions{
		URL:      req.URL,
		Type:     req.Type,
		SSL:      req.SSL,
		Wildcard: req.Wildcard,
	})
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s created", s.URL), toDTO(s))
}

// Delete removes a site completely
func (h *Handler) Delete(c *gin.Context) {
	url := c.Param("url")
	if err := h.svc.Delete(opContext(c), url); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s deleted", url), nil)
}

// UpdateRequest names the new site type
type UpdateRequest struct {
	Type string `json:"type" binding:"required"`
}

// Update swaps the site type
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("type is required"))
		return
	}
	url := c.Param("url")
	if err := h.svc.Update(opContext(c), url, req.Type); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s updated to %s", url, req.Type), nil)
}

// BackupRequest controls a backup
type BackupRequest struct {
	Location string `json:"location"`
	Force    bool   `json:"force"`
}

// Backup backs a site up
func (h *Handler) Backup(c *gin.Context) {
	var req BackupRequest
	if err := bindOptional(c, &req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	url := c.Param("url")
	location, err := h.svc.Backup(opContext(c), url, req.Location, req.Force)
	if err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s backed up", url), gin.H{"location": location})
}

// ForceRequest carries the force flag
type ForceRequest struct {
	Force bool `json:"force"`
}

// Enable starts a site
func (h *Handler) Enable(c *gin.Context) {
	var req ForceRequest
	if err := bindOptional(c, &req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	url := c.Param("url")
	if err := h.svc.Enable(opContext(c), url, req.Force); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s enabled", url), nil)
}

// Disable stops a site
func (h *Handler) Disable(c *gin.Context) {
	url := c.Param("url")
	if err := h.svc.Disable(opContext(c), url); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s disabled", url), nil)
}

// ServicesRequest selects services for restart/reload
type ServicesRequest struct {
	Services []string `json:"services"`
	All      bool     `json:"all"`
}

// Restart restarts site services
func (h *Handler) Restart(c *gin.Context) {
	var req ServicesRequest
	if err := bindOptional(c, &req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	url := c.Param("url")
	if err := h.svc.Restart(opContext(c), url, req.Services, req.All); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s restarted", url), nil)
}

// Reload reloads site services in place
func (h *Handler) Reload(c *gin.Context) {
	var req ServicesRequest
	if err := bindOptional(c, &req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	url := c.Param("url")
	if err := h.svc.Reload(opContext(c), url, req.Services, req.All); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("Site %s reloaded", url), nil)
}

// SSL issues the site certificate
func (h *Handler) SSL(c *gin.Context) {
	var req ForceRequest
	if err := bindOptional(c, &req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
		return
	}
	url := c.Param("url")
	if err := h.svc.SSL(opContext(c), url, req.Force); err != nil {
		fail(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("SSL enabled for %s", url), nil)
}

// Renew renews the site certificate when due
func (h *Handler) Renew(c *gin.Context) {
	url := c.Param("url")
	renewed, err := h.svc.Renew(opContext(c), url)
	if err != nil {
		fail(c, err)
		return
	}
	msg := fmt.Sprintf("Certificate of %s is still valid", url)
	if renewed {
		msg = fmt.Sprintf("Certificate of %s renewed", url)
	}
	httpx.OKMsg(c, msg, gin.H{"renewed": renewed})
}

// bindOptional binds a JSON body when one was sent
func bindOptional(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
