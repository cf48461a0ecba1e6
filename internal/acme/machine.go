package acme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_sitectl/internal/cert"
	"go_sitectl/internal/domainutil"
	"go_sitectl/internal/model"

	"github.com/sirupsen/logrus"
)

// State is a step of the certificate lifecycle
type State string

const (
	StateUnregistered      State = "unregistered"
	StateRegistered        State = "registered"
	StateDomainsAuthorized State = "domains_authorized"
	StateIssued            State = "issued"
	StateInstalled         State = "installed"
	StateCleanupPending    State = "cleanup_pending"
)

// Certificate is the material returned by the CA
type Certificate struct {
	Cert  []byte
	Key   []byte
	Chain []byte
}

// CAClient talks to the certificate authority
type CAClient interface {
	// Register ensures the account for email exists
	Register(ctx context.Context, email string) error
	// Authorize proves control of domains. It returns
	// ErrAuthorizationPending while a manual DNS record is not visible.
	Authorize(ctx context.Context, url string, domains []string, wildcard bool) error
	// Request obtains a certificate for domains, the first one being the
	// common name
	Request(ctx context.Context, url string, domains []string, wildcard bool) (*Certificate, error)
	// Cleanup removes the transient authorization state of url
	Cleanup(ctx context.Context, url string) error
}

// SiteFinder looks up site records
type SiteFinder interface {
	Find(ctx context.Context, url string) (*model.Site, error)
}

// ProxyReloader makes the proxy pick up installed certificates
type ProxyReloader interface {
	ReloadProxy(ctx context.Context) error
}

// Machine drives a site certificate from registration to installation
type Machine struct {
	CA          CAClient
	Storage     *Storage
	Sites       SiteFinder
	Proxy       ProxyReloader
	Email       string
	RenewBefore time.Duration
	Log         *logrus.Entry

	// Observer, when set, sees every state transition
	Observer func(url string, s State)

	now func() time.Time
}

// NewMachine creates a certificate machine
func NewMachine(ca CAClient, storage *Storage, sites SiteFinder, proxy ProxyReloader, email string, renewBeforeDays int, log *logrus.Entry) *Machine {
	return &Machine{
		CA:          ca,
		Storage:     storage,
		Sites:       sites,
		Proxy:       proxy,
		Email:       email,
		RenewBefore: time.Duration(renewBeforeDays) * 24 * time.Hour,
		Log:         log.WithField("component", "acme"),
		now:         time.Now,
	}
}

func (m *Machine) enter(url string, s State) {
	m.Log.WithFields(logrus.Fields{"site": url, "state": s}).Debug("Certificate state")
	if m.Observer != nil {
		m.Observer(url, s)
	}
}

func (m *Machine) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// Issue runs the certificate flow for site. Without force an installed
// certificate that still covers the site's domains is kept.
func (m *Machine) Issue(ctx context.Context, site *model.Site, force bool) error {
	url := site.URL
	domains := Domains(url, site.SSLWildcard)
	log := m.Log.WithField("site", url)

	m.enter(url, StateUnregistered)
	if err := m.CA.Register(ctx, m.Email); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	m.enter(url, StateRegistered)

	// a valid certificate needs no authorization, wildcard records of the
	// last order may already be gone from DNS
	if !force {
		err := m.Check(url, domains)
		if err == nil {
			log.Info("Installed certificate is still valid, skipping request")
			m.enter(url, StateInstalled)
			return m.cleanup(ctx, url, site.SSLWildcard)
		}
		if !errors.Is(err, ErrCertificateInvalid) {
			return err
		}
		log.WithError(err).Debug("Requesting a new certificate")
	}

	if err := m.CA.Authorize(ctx, url, domains, site.SSLWildcard); err != nil {
		return err
	}
	m.enter(url, StateDomainsAuthorized)

	c, err := m.CA.Request(ctx, url, domains, site.SSLWildcard)
	if err != nil {
		return fmt.Errorf("request certificate for %s: %w", url, err)
	}
	m.enter(url, StateIssued)

	if err := m.Storage.Install(url, c); err != nil {
		return err
	}
	if err := m.Check(url, domains); err != nil {
		return err
	}
	m.enter(url, StateInstalled)
	log.WithField("domains", domains).Info("Certificate installed")

	if err := m.cleanup(ctx, url, site.SSLWildcard); err != nil {
		return err
	}
	return m.Proxy.ReloadProxy(ctx)
}

// cleanup drops authorization state. Wildcard authorizations stay until
// the DNS record is removed by hand.
func (m *Machine) cleanup(ctx context.Context, url string, wildcard bool) error {
	if wildcard {
		m.enter(url, StateCleanupPending)
		m.Log.WithField("site", url).Info("Remove the _acme-challenge TXT records once issuance is complete")
		return nil
	}
	if err := m.CA.Cleanup(ctx, url); err != nil {
		m.Log.WithField("site", url).WithError(err).Warn("Failed to clean up authorization state")
	}
	return nil
}

// Check verifies the installed certificate of url covers domains and is
// not due for renewal
func (m *Machine) Check(url string, domains []string) error {
	info, err := m.Storage.Load(url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCertificateInvalid, err)
	}
	if missing := cert.Missing(info.Domains, domains); len(missing) > 0 {
		return fmt.Errorf("%w: %v not covered", ErrCertificateInvalid, missing)
	}
	if info.ExpiresWithin(m.clock(), m.RenewBefore) {
		return fmt.Errorf("%w: expires %s", ErrCertificateInvalid, info.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// Inherit validates that url can use its parent site's wildcard
// certificate
func (m *Machine) Inherit(ctx context.Context, url string) error {
	parentURL, err := domainutil.Parent(url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParentNotFound, err)
	}
	parent, err := m.Sites.Find(ctx, parentURL)
	if errors.Is(err, model.ErrSiteNotFound) {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parentURL)
	}
	if err != nil {
		return err
	}
	if parent.SSL == model.SSLNone {
		return fmt.Errorf("%w: %s", ErrParentSSLDisabled, parentURL)
	}
	if parent.SSL != model.SSLLE || !parent.SSLWildcard {
		return fmt.Errorf("%w: %s", ErrParentNotWildcard, parentURL)
	}
	m.Log.WithFields(logrus.Fields{"site": url, "parent": parentURL}).Debug("Parent wildcard certificate found")
	return nil
}

// Renew re-issues the certificate of site when it is invalid or due
func (m *Machine) Renew(ctx context.Context, site *model.Site) (bool, error) {
	err := m.Check(site.URL, Domains(site.URL, site.SSLWildcard))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrCertificateInvalid) {
		return false, err
	}
	m.Log.WithField("site", site.URL).WithError(err).Info("Renewing certificate")
	if err := m.Issue(ctx, site, true); err != nil {
		return false, err
	}
	return true, nil
}
