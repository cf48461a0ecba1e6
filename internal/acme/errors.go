package acme

import "errors"

var (
	// ErrRegistration halts the SSL flow; the site is left without ssl
	ErrRegistration = errors.New("acme account registration failed")
	// ErrAuthorizationPending means domain control could not be proven
	// yet, typically because a DNS record has not propagated. Re-run
	// issuance once it has.
	ErrAuthorizationPending = errors.New("domain authorization pending")
	// ErrCertificateInvalid means the installed certificate is missing,
	// does not cover the site's domains or expires soon
	ErrCertificateInvalid = errors.New("certificate missing or invalid")

	ErrParentNotFound    = errors.New("parent site not found")
	ErrParentSSLDisabled = errors.New("parent site does not have ssl enabled")
	ErrParentNotWildcard = errors.New("parent site certificate is not a wildcard")
)
