package cert

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
)

// ErrNoCertificate means no certificate file is installed
var ErrNoCertificate = errors.New("no certificate installed")

// Info summarizes an installed certificate
type Info struct {
	Domains  []string
	NotAfter time.Time
	Issuer   string
}

// Load parses the PEM certificate at path
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCertificate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", path, err)
	}
	return Parse(data)
}

// Parse extracts names and expiry from PEM certificate bytes
func Parse(pemBytes []byte) (*Info, error) {
	x, err := certcrypto.ParsePEMCertificate(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	domains := make([]string, 0, len(x.DNSNames)+1)
	if x.Subject.CommonName != "" {
		domains = append(domains, x.Subject.CommonName)
	}
	for _, n := range x.DNSNames {
		if n != x.Subject.CommonName {
			domains = append(domains, n)
		}
	}
	return &Info{Domains: domains, NotAfter: x.NotAfter, Issuer: x.Issuer.CommonName}, nil
}

// ExpiresWithin reports whether the certificate expires before now+d
func (i *Info) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !i.NotAfter.After(now.Add(d))
}
