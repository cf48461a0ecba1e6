package acme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go_sitectl/internal/config"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	legodns "github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/providers/http/webroot"
	"github.com/go-acme/lego/v4/registration"
	"github.com/sirupsen/logrus"
)

// LegoClient implements CAClient using go-acme/lego. HTTP-01 challenges
// are served by the proxy from a per-site webroot; wildcard names use
// DNS-01 with records the operator publishes.
type LegoClient struct {
	Paths        config.Paths
	DirectoryURL string
	Lookup       LookupTXT
	Log          *logrus.Entry

	mu   sync.Mutex
	user *User
}

// NewLegoClient creates a lego-backed CA client
func NewLegoClient(paths config.Paths, directoryURL string, log *logrus.Entry) *LegoClient {
	return &LegoClient{
		Paths:        paths,
		DirectoryURL: directoryURL,
		Lookup:       lookupTXT,
		Log:          log.WithField("component", "lego"),
	}
}

// Webroot returns the directory the proxy serves /.well-known/acme-challenge from
func (c *LegoClient) Webroot(url string) string {
	return filepath.Join(c.Paths.ACMEVarDir(url), "webroot")
}

func (c *LegoClient) newClient(user *User) (*lego.Client, error) {
	cfg := lego.NewConfig(user)
	cfg.CADirURL = c.DirectoryURL
	cfg.Certificate.KeyType = certcrypto.EC256

	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create lego client: %w", err)
	}
	return client, nil
}

// Register loads the account and registers it with the CA when needed
func (c *LegoClient) Register(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if email == "" {
		return errors.New("no account email configured")
	}
	dir := c.Paths.ACMEAccountDir()
	user, err := loadUser(dir, email)
	if err != nil {
		return err
	}
	if user.Registration != nil {
		c.user = user
		return nil
	}

	client, err := c.newClient(user)
	if err != nil {
		return err
	}
	reg, err := client.Registration.Register(registration.RegisterOptions{
		TermsOfServiceAgreed: true,
	})
	if err != nil {
		return fmt.Errorf("failed to register ACME account: %w", err)
	}
	user.Registration = reg
	if err := saveUser(dir, user); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	c.user = user
	c.Log.WithField("email", email).Info("ACME account registered")
	return nil
}

// Authorize prepares domain validation. For HTTP-01 the webroot is
// created; for wildcard sites the TXT records of a still pending order must
// be visible before a new order is placed.
func (c *LegoClient) Authorize(ctx context.Context, url string, domains []string, wildcard bool) error {
	if !wildcard {
		if err := os.MkdirAll(c.Webroot(url), 0755); err != nil {
			return fmt.Errorf("failed to create webroot: %w", err)
		}
		return nil
	}

	records, err := loadChallenge(c.Paths.ACMEVarDir(url))
	if err != nil || len(records) == 0 {
		return err
	}
	missing, err := missingRecords(ctx, c.Lookup, records)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &PendingError{Records: missing}
	}
	return nil
}

// Request obtains a bundled certificate for domains
func (c *LegoClient) Request(ctx context.Context, url string, domains []string, wildcard bool) (*Certificate, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil {
		return nil, errors.New("account not registered")
	}

	client, err := c.newClient(user)
	if err != nil {
		return nil, err
	}

	var manual *manualDNSProvider
	if wildcard {
		manual = &manualDNSProvider{dir: c.Paths.ACMEVarDir(url)}
		err = client.Challenge.SetDNS01Provider(manual,
			legodns.AddRecursiveNameservers(Nameservers),
			legodns.WrapPreCheck(func(domain, fqdn, value string, check legodns.PreCheckFunc) (bool, error) {
				return check(fqdn, value)
			}),
		)
	} else {
		var provider *webroot.HTTPProvider
		provider, err = webroot.NewHTTPProvider(c.Webroot(url))
		if err == nil {
			err = client.Challenge.SetHTTP01Provider(provider)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set challenge provider: %w", err)
	}

	type result struct {
		res *certificate.Resource
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := client.Certificate.Obtain(certificate.ObtainRequest{
			Domains: domains,
			Bundle:  true,
		})
		done <- result{res, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		if manual != nil {
			if pending := manual.pending(); pending != nil {
				c.Log.WithError(r.err).Debug("DNS-01 validation failed")
				return nil, pending
			}
		}
		return nil, fmt.Errorf("failed to obtain certificate: %w", r.err)
	}
	if manual != nil {
		if err := retireChallenge(manual.dir); err != nil {
			c.Log.WithError(err).Warn("Challenge records left in place")
		}
	}

	return &Certificate{
		Cert:  r.res.Certificate,
		Key:   r.res.PrivateKey,
		Chain: r.res.IssuerCertificate,
	}, nil
}

// Cleanup removes the webroot and persisted challenge records of url
func (c *LegoClient) Cleanup(ctx context.Context, url string) error {
	return os.RemoveAll(c.Paths.ACMEVarDir(url))
}
