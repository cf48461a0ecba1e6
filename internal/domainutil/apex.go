package domainutil

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Normalize lowercases a host name, strips a trailing dot and port, and
// rejects IP addresses, empty names and characters outside a-z 0-9 . - *
func Normalize(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", fmt.Errorf("domain must not be empty")
	}
	host = strings.TrimSuffix(host, ".")

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return "", fmt.Errorf("domain must not be empty after normalization")
	}

	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", fmt.Errorf("IP address is not allowed as domain: %s", host)
	}

	for _, r := range host {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '*') {
			return "", fmt.Errorf("domain contains invalid character: %c in %s", r, host)
		}
	}
	if strings.HasPrefix(host, ".") || strings.HasPrefix(host, "-") || strings.Contains(host, "..") {
		return "", fmt.Errorf("domain is malformed: %s", host)
	}
	if !strings.Contains(host, ".") {
		return "", fmt.Errorf("domain must contain at least one dot: %s", host)
	}
	return host, nil
}

// NormalizeSite normalizes a site url. Wildcards are certificate names,
// never site names.
func NormalizeSite(url string) (string, error) {
	host, err := Normalize(url)
	if err != nil {
		return "", err
	}
	if strings.Contains(host, "*") {
		return "", fmt.Errorf("site url must not contain a wildcard: %s", host)
	}
	return host, nil
}

// EffectiveApex computes eTLD+1 using the public suffix list:
//   - www.example.com -> example.com
//   - a.b.example.co.uk -> example.co.uk
func EffectiveApex(domain string) (string, error) {
	normalized, err := Normalize(domain)
	if err != nil {
		return "", fmt.Errorf("normalize failed for %s: %w", domain, err)
	}
	normalized = strings.TrimPrefix(normalized, "*.")

	apex, err := publicsuffix.EffectiveTLDPlusOne(normalized)
	if err != nil {
		return "", fmt.Errorf("PSL lookup failed for %s: %w", domain, err)
	}
	return apex, nil
}

// Parent drops the first label of a domain. It fails when the domain is
// already a registrable apex, because its parent would be a public suffix.
func Parent(domain string) (string, error) {
	normalized, err := Normalize(domain)
	if err != nil {
		return "", err
	}
	apex, err := EffectiveApex(normalized)
	if err != nil {
		return "", err
	}
	if normalized == apex {
		return "", fmt.Errorf("%s is a registrable domain and has no parent site", normalized)
	}
	return normalized[strings.Index(normalized, ".")+1:], nil
}
