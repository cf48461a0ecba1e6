package site

import (
	"context"
	"errors"
	"fmt"

	"go_sitectl/internal/acme"
	"go_sitectl/internal/model"
)

// SSL issues (or re-issues with force) the certificate of an existing
// site. Certificate errors are logged in full and returned as a single
// user-facing error.
func (e *Engine) SSL(ctx context.Context, url string, force bool) error {
	url, err := siteURL(ActionSSL, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionSSL, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}

		if site.SSL == model.SSLInherit {
			if err := e.Certificates.Inherit(ctx, url); err != nil {
				return precondition(op, err)
			}
			op.log.Info("Site inherits its parent's wildcard certificate")
			return nil
		}

		previous := site.SSL
		site.SSL = model.SSLLE
		err = e.Certificates.Issue(ctx, site, force)
		if err == nil {
			if previous != model.SSLLE {
				if err := e.Store.Save(ctx, site); err != nil {
					return operational(op, err)
				}
			}
			return nil
		}

		op.log.WithError(err).Error("Certificate issuance failed")
		if errors.Is(err, acme.ErrRegistration) && previous != model.SSLNone {
			site.SSL = model.SSLNone
			site.SSLWildcard = false
			if serr := e.Store.Save(context.WithoutCancel(ctx), site); serr != nil {
				op.log.WithError(serr).Error("Failed to reset ssl flag")
			}
		}
		return operational(op, userFacing(err))
	})
}

// userFacing turns a certificate machine error into an operator message
func userFacing(err error) error {
	switch {
	case errors.Is(err, acme.ErrAuthorizationPending):
		return err
	case errors.Is(err, acme.ErrRegistration):
		return fmt.Errorf("could not register with the certificate authority, check the account email: %w", err)
	case errors.Is(err, acme.ErrCertificateInvalid):
		return fmt.Errorf("issued certificate failed verification: %w", err)
	default:
		return fmt.Errorf("certificate issuance failed: %w", err)
	}
}

// Renew re-issues a site's certificate when it is due
func (e *Engine) Renew(ctx context.Context, url string) (bool, error) {
	url, err := siteURL(ActionRenew, url)
	if err != nil {
		return false, err
	}
	var renewed bool
	err = e.run(ctx, ActionRenew, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		if site.SSL != model.SSLLE {
			op.log.Debugf("Skipping renewal, ssl mode %q", site.SSL)
			return nil
		}
		renewed, err = e.Certificates.Renew(ctx, site)
		if err != nil {
			return operational(op, userFacing(err))
		}
		op.set("renewed", renewed)
		return nil
	})
	return renewed, err
}

// RenewAll renews every issued certificate that is due. It keeps going
// past individual failures and returns them joined.
func (e *Engine) RenewAll(ctx context.Context) (int, error) {
	sites, err := e.Store.Where(ctx, "ssl", model.SSLLE)
	if err != nil {
		return 0, err
	}
	var errs []error
	count := 0
	for _, s := range sites {
		renewed, err := e.Renew(ctx, s.URL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if renewed {
			count++
		}
	}
	return count, errors.Join(errs...)
}
