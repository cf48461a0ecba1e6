package acme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	legodns "github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/miekg/dns"
)

const (
	challengeFile = "dns-challenge.json"
	// records of an order that produced a certificate
	issuedChallengeFile = "dns-challenge.issued.json"
)

// Nameservers queried to verify challenge records
var Nameservers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// TXTRecord is a DNS record the operator has to publish
type TXTRecord struct {
	FQDN  string `json:"fqdn"`
	Value string `json:"value"`
}

func (r TXTRecord) String() string {
	return fmt.Sprintf("%s TXT %q", r.FQDN, r.Value)
}

// PendingError lists the records that still have to be published
type PendingError struct {
	Records []TXTRecord
}

func (e *PendingError) Error() string {
	parts := make([]string, len(e.Records))
	for i, r := range e.Records {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%s: add %s and re-run ssl", ErrAuthorizationPending, strings.Join(parts, ", "))
}

func (e *PendingError) Unwrap() error {
	return ErrAuthorizationPending
}

// manualDNSProvider implements challenge.Provider for wildcard DNS-01.
// Records cannot be created automatically, so Present only persists them
// for the operator.
type manualDNSProvider struct {
	dir string

	mu      sync.Mutex
	records []TXTRecord
}

func (p *manualDNSProvider) Present(domain, token, keyAuth string) error {
	info := legodns.GetChallengeInfo(domain, keyAuth)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.records {
		if r.FQDN == info.FQDN && r.Value == info.Value {
			return nil
		}
	}
	p.records = append(p.records, TXTRecord{FQDN: info.FQDN, Value: info.Value})
	return saveChallenge(p.dir, p.records)
}

// CleanUp keeps the persisted records; they are removed with the
// authorization state once issuance succeeds
func (p *manualDNSProvider) CleanUp(domain, token, keyAuth string) error {
	return nil
}

// Timeout bounds how long lego waits for propagation
func (p *manualDNSProvider) Timeout() (timeout, interval time.Duration) {
	return 30 * time.Second, 5 * time.Second
}

func (p *manualDNSProvider) pending() *PendingError {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.records) == 0 {
		return nil
	}
	return &PendingError{Records: append([]TXTRecord(nil), p.records...)}
}

func saveChallenge(dir string, records []TXTRecord) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create challenge dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, challengeFile), data, 0644)
}

// loadChallenge returns the persisted records, or nil when none exist
func loadChallenge(dir string) ([]TXTRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, challengeFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge records: %w", err)
	}
	var records []TXTRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode challenge records: %w", err)
	}
	return records, nil
}

// retireChallenge moves the records of a completed order aside so the next
// order is not gated on them. They stay on disk for manual re-verification.
func retireChallenge(dir string) error {
	err := os.Rename(filepath.Join(dir, challengeFile), filepath.Join(dir, issuedChallengeFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to retire challenge records: %w", err)
	}
	return nil
}

// LookupTXT returns the TXT values of fqdn as seen by a recursive
// nameserver
type LookupTXT func(ctx context.Context, fqdn string) ([]string, error)

func lookupTXT(ctx context.Context, fqdn string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(fqdn), dns.TypeTXT)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: 5 * time.Second}
	var lastErr error
	for _, ns := range Nameservers {
		r, _, err := c.ExchangeContext(ctx, m, ns)
		if err != nil {
			lastErr = err
			continue
		}
		var values []string
		for _, rr := range r.Answer {
			if txt, ok := rr.(*dns.TXT); ok {
				values = append(values, strings.Join(txt.Txt, ""))
			}
		}
		return values, nil
	}
	return nil, fmt.Errorf("TXT lookup %s failed: %w", fqdn, lastErr)
}

// missingRecords returns the records not yet visible in DNS
func missingRecords(ctx context.Context, lookup LookupTXT, records []TXTRecord) ([]TXTRecord, error) {
	var missing []TXTRecord
	for _, r := range records {
		values, err := lookup(ctx, r.FQDN)
		if err != nil {
			return nil, err
		}
		found := false
		for _, v := range values {
			if v == r.Value {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, r)
		}
	}
	return missing, nil
}
