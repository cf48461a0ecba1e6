package site

import (
	"context"
	"errors"
	"fmt"

	"go_sitectl/internal/model"
)

// CreateOptions describes a new site
type CreateOptions struct {
	URL      string
	Type     string
	SSL      string // "", "le" or "inherit"
	Wildcard bool

	// DB presets the database parameters instead of generating new ones
	DB *model.DBParams
}

// ErrInvalidSSLMode is returned for an unknown ssl mode or a wildcard
// request without issuance
var ErrInvalidSSLMode = errors.New("invalid ssl mode")

// Create provisions a site. Any failure before the record is saved rolls
// back everything provisioned so far.
func (e *Engine) Create(ctx context.Context, opts CreateOptions) (*model.Site, error) {
	url, err := siteURL(ActionCreate, opts.URL)
	if err != nil {
		return nil, err
	}
	opts.URL = url

	var site *model.Site
	err = e.run(ctx, ActionCreate, url, true, func(ctx context.Context, op *Operation) error {
		s, err := e.create(ctx, op, opts)
		site = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

func (e *Engine) checkCreate(ctx context.Context, op *Operation, opts CreateOptions) error {
	if !model.ValidType(opts.Type) {
		return precondition(op, fmt.Errorf("%w: %q", ErrInvalidType, opts.Type))
	}
	switch opts.SSL {
	case model.SSLNone, model.SSLLE, model.SSLInherit:
	default:
		return precondition(op, fmt.Errorf("%w: %q", ErrInvalidSSLMode, opts.SSL))
	}
	if opts.Wildcard && opts.SSL != model.SSLLE {
		return precondition(op, fmt.Errorf("%w: wildcard requires ssl=le", ErrInvalidSSLMode))
	}

	if _, err := e.Store.Find(ctx, opts.URL); err == nil {
		return precondition(op, ErrSiteExists)
	} else if !errors.Is(err, model.ErrSiteNotFound) {
		return operational(op, err)
	}
	if root := e.Paths.SiteRoot(opts.URL); e.FS.Exists(root) {
		return precondition(op, fmt.Errorf("%w: %s already exists on disk", ErrSiteExists, root))
	}

	if opts.SSL == model.SSLInherit {
		if err := e.Certificates.Inherit(ctx, opts.URL); err != nil {
			return precondition(op, err)
		}
	}
	return nil
}

// create runs the provisioning sequence. Each step first records the
// teardown level that unwinds it, so an interruption at any point rolls
// back exactly what may exist.
func (e *Engine) create(ctx context.Context, op *Operation, opts CreateOptions) (*model.Site, error) {
	if err := e.checkCreate(ctx, op, opts); err != nil {
		return nil, err
	}

	site := &model.Site{
		URL:         opts.URL,
		FSPath:      e.Paths.SiteRoot(opts.URL),
		Type:        opts.Type,
		SSL:         opts.SSL,
		SSLWildcard: opts.Wildcard,
	}
	op.Site = site
	log := op.log.WithField("type", site.Type)

	var db *model.DBParams
	if model.NeedsDatabase(site.Type) {
		db = opts.DB
		if db == nil {
			p, err := e.Databases.NewParams(site.URL)
			if err != nil {
				return nil, operational(op, err)
			}
			db = p
		}
	}

	op.reach(LevelFilesystem)
	if err := e.Provisioner.Provision(site, db); err != nil {
		return nil, operational(op, fmt.Errorf("provision files: %w", err))
	}
	log.Info("Site files created")

	op.reach(LevelNetwork)
	if err := e.Containers.CreateNetwork(ctx, site.URL); err != nil {
		return nil, operational(op, fmt.Errorf("create network: %w", err))
	}

	op.reach(LevelContainers)
	if err := e.Containers.ConnectProxy(ctx, site.URL); err != nil {
		return nil, operational(op, fmt.Errorf("connect proxy: %w", err))
	}

	if db != nil {
		// recorded first so a rollback drops a partially created database
		site.SetDatabase(db)
		if err := e.Databases.Create(ctx, db); err != nil {
			return nil, operational(op, fmt.Errorf("create database: %w", err))
		}
		log.Info("Database created")
	}

	op.reach(LevelRemove)
	if err := e.Containers.Up(ctx, site.FSPath); err != nil {
		return nil, operational(op, fmt.Errorf("start containers: %w", err))
	}
	site.Enabled = true
	log.Info("Containers started")

	op.reach(LevelRecord)
	if err := e.Store.Save(ctx, site); err != nil {
		return nil, operational(op, err)
	}
	op.commit()
	log.Info("Site record saved")

	if site.HasSSL() {
		e.initSSL(ctx, op, site)
	}
	return site, nil
}

// initSSL sets up TLS for a freshly created site. Failure leaves the
// site serving plain HTTP; it does not undo the site.
func (e *Engine) initSSL(ctx context.Context, op *Operation, site *model.Site) {
	var err error
	switch site.SSL {
	case model.SSLLE:
		err = e.Certificates.Issue(ctx, site, false)
	case model.SSLInherit:
		if err = e.Certificates.Inherit(ctx, site.URL); err == nil {
			err = e.Containers.ReloadProxy(ctx)
		}
	}
	if err == nil {
		op.log.Infof("SSL (%s) enabled", site.SSL)
		return
	}

	op.log.WithError(err).Warnf("SSL setup failed, site %s stays on plain HTTP", site.URL)
	op.set("sslError", err.Error())
	site.SSL = model.SSLNone
	site.SSLWildcard = false
	if serr := e.Store.Save(context.WithoutCancel(ctx), site); serr != nil {
		op.log.WithError(serr).Error("Failed to reset ssl flag")
	}
}
