package site

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"

	"go_sitectl/internal/config"
	"go_sitectl/internal/domainutil"
	"go_sitectl/internal/events"
	"go_sitectl/internal/lock"
	"go_sitectl/internal/model"
)

// Containers is the container runtime as the engine uses it
type Containers interface {
	Up(ctx context.Context, path string) error
	Down(ctx context.Context, path string) error
	Remove(ctx context.Context, path string) error
	Restart(ctx context.Context, path string, services ...string) error
	Exec(ctx context.Context, path, service string, cmd ...string) (string, error)
	ConfigTest(ctx context.Context, path string) error
	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error
	ConnectProxy(ctx context.Context, network string) error
	DisconnectProxy(ctx context.Context, network string) error
	ReloadProxy(ctx context.Context) error
}

// Databases is the database server as the engine uses it
type Databases interface {
	NewParams(url string) (*model.DBParams, error)
	Create(ctx context.Context, p *model.DBParams) error
	Drop(ctx context.Context, p *model.DBParams) error
	Dump(ctx context.Context, url string, p *model.DBParams, location string) error
	Restore(ctx context.Context, url string, p *model.DBParams, location string) error
}

// Filesystem is the host filesystem as the engine uses it
type Filesystem interface {
	Exists(path string) bool
	MkdirAll(path string) error
	RemoveAll(path string) error
	Remove(path string) error
	Mirror(ctx context.Context, src, dst string) error
	CopyFile(src, dst string) error
}

// Provisioner lays out a new site's tree and compose file
type Provisioner interface {
	Provision(site *model.Site, db *model.DBParams) error
}

// Store is the site record store
type Store interface {
	Find(ctx context.Context, url string) (*model.Site, error)
	All(ctx context.Context) ([]model.Site, error)
	Where(ctx context.Context, field string, value interface{}) ([]model.Site, error)
	Save(ctx context.Context, site *model.Site) error
	Delete(ctx context.Context, url string) error
}

// Journal records operation outcomes
type Journal interface {
	Begin(ctx context.Context, opID, url, action string) error
	Finish(ctx context.Context, opID, status string, level int, opErr error, detail map[string]interface{}) error
}

// Certificates drives the certificate state machine for a site
type Certificates interface {
	// Issue runs register, authorize, check/request, install and cleanup.
	// Errors propagate so the caller can react.
	Issue(ctx context.Context, site *model.Site, force bool) error
	// Inherit validates that the parent site's wildcard certificate covers url
	Inherit(ctx context.Context, url string) error
	// Renew re-requests the certificate when it is missing, mismatched or
	// close to expiry. It reports whether a new certificate was installed.
	Renew(ctx context.Context, site *model.Site) (bool, error)
}

// Engine sequences lifecycle operations against the drivers and the store
type Engine struct {
	Containers   Containers
	Databases    Databases
	FS           Filesystem
	Provisioner  Provisioner
	Store        Store
	Journal      Journal
	Locker       lock.Locker
	Events       events.Publisher
	Certificates Certificates
	Paths        config.Paths
	Log          *logrus.Entry

	// Signals interrupt a running operation and trigger rollback
	Signals []os.Signal
}

// DefaultSignals are intercepted while an operation runs
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGTERM}

// Get returns a site record
func (e *Engine) Get(ctx context.Context, url string) (*model.Site, error) {
	if n, err := domainutil.NormalizeSite(url); err == nil {
		url = n
	}
	return e.Store.Find(ctx, url)
}

// List returns all sites, or only enabled/disabled ones
func (e *Engine) List(ctx context.Context, status string) ([]model.Site, error) {
	switch status {
	case "enabled":
		return e.Store.Where(ctx, "enabled", true)
	case "disabled":
		return e.Store.Where(ctx, "enabled", false)
	default:
		return e.Store.All(ctx)
	}
}

// siteURL normalizes a url given by a caller so that Example.COM. names
// the same site as example.com
func siteURL(action, url string) (string, error) {
	n, err := domainutil.NormalizeSite(url)
	if err != nil {
		return "", &Error{Kind: KindPrecondition, Op: action, URL: url, Err: err}
	}
	return n, nil
}

func (e *Engine) find(ctx context.Context, op *Operation) (*model.Site, error) {
	site, err := e.Store.Find(ctx, op.URL)
	if errors.Is(err, model.ErrSiteNotFound) {
		return nil, precondition(op, err)
	}
	if err != nil {
		return nil, operational(op, err)
	}
	op.Site = site
	return site, nil
}

func (e *Engine) signals() []os.Signal {
	if e.Signals != nil {
		return e.Signals
	}
	return DefaultSignals
}
