package acme

import "strings"

// Domains returns the two names a site certificate covers: the url plus
// its wildcard, or plus the www-prefixed / www-stripped counterpart
func Domains(url string, wildcard bool) []string {
	if wildcard {
		return []string{url, "*." + url}
	}
	if rest, ok := strings.CutPrefix(url, "www."); ok {
		return []string{url, rest}
	}
	return []string{url, "www." + url}
}
