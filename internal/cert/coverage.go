package cert

import "strings"

// Missing returns the wanted domains no certificate name covers
func Missing(certDomains, wanted []string) []string {
	var missing []string
	for _, d := range wanted {
		if !IsCoveredBy(d, certDomains) {
			missing = append(missing, d)
		}
	}
	return missing
}

// IsCoveredBy checks if a target domain is covered by any certificate name
func IsCoveredBy(target string, certDomains []string) bool {
	for _, cd := range certDomains {
		if MatchDomain(cd, target) {
			return true
		}
	}
	return false
}

// MatchDomain checks if a certificate name matches a target domain.
// A wildcard target is only covered by the identical wildcard name.
func MatchDomain(certDomain, target string) bool {
	certDomain = strings.ToLower(certDomain)
	target = strings.ToLower(target)
	if certDomain == target {
		return true
	}
	if strings.HasPrefix(certDomain, "*.") && !strings.HasPrefix(target, "*.") {
		return MatchWildcard(certDomain, target)
	}
	return false
}

// MatchWildcard reports whether *.base covers target:
//   - *.example.com matches a.example.com
//   - *.example.com does NOT match example.com
//   - *.example.com does NOT match a.b.example.com
func MatchWildcard(wildcard, target string) bool {
	base := "." + strings.TrimPrefix(wildcard, "*.")
	label, ok := strings.CutSuffix(target, base)
	return ok && label != "" && !strings.Contains(label, ".")
}
